// summary.go implements the configuration summary report endpoint.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cm360-audit/config-helper/internal/services"
)

// @Summary      Configuration summary
// @Description  Count active configs in the recipients and thresholds sheets and active exclusion rules. A missing sheet becomes a "sheet missing" line, never an error.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "recipients/thresholds/exclusions sections plus the rendered text report"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/summary [get]
func SummaryHandler(summary *services.SummaryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := summary.Summarize(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"recipients": report.Recipients,
			"thresholds": report.Thresholds,
			"exclusions": report.Exclusions,
			"text":       report.Text(),
		})
	}
}
