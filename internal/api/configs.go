// configs.go implements the active-config listing and submission endpoints.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cm360-audit/config-helper/internal/middleware"
	"github.com/cm360-audit/config-helper/internal/services"
	"github.com/cm360-audit/config-helper/internal/sheets"
)

// @Summary      List active configurations
// @Description  List the active configuration names for the audit request picker. Served from an in-process cache; pass refresh=true to force a re-read of the workbook.
// @Tags         Configs
// @Produce      json
// @Param        refresh  query  bool  false  "Bypass the cache and re-read the Audit Recipients sheet"
// @Success      200  {object}  map[string]interface{}  "configs: [{name, recipient_count, cc_count, withhold_no_flag_emails}]"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/configs [get]
func ListConfigsHandler(configs *services.ConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		refresh := c.Query("refresh") == "true"

		options, err := configs.ListActiveConfigs(c.Request.Context(), refresh)
		if err != nil {
			// A missing Audit Recipients sheet is a setup problem, not a
			// server fault. Surface guidance instead of a 5xx so the picker
			// can show it to the user.
			if errors.Is(err, sheets.ErrTabNotFound) {
				c.JSON(http.StatusOK, gin.H{
					"configs": []services.ConfigOption{},
					"message": "The Audit Recipients sheet is missing. Please re-run the configuration sync before requesting audits.",
				})
				return
			}
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"configs": options})
	}
}

// @Summary      Submit a new configuration
// @Description  Validate and append a new audit configuration: one recipients row and one thresholds row per flag type, then notify the admin.
// @Tags         Configs
// @Accept       json
// @Produce      json
// @Param        body  body  services.NewConfigInput  true  "config_id, recipients, cc, thresholds keyed by flag type"
// @Success      201  {object}  services.CreateResult
// @Failure      400  {object}  map[string]interface{}  "Validation error"
// @Failure      500  {object}  map[string]interface{}  "Write failure; the error states which rows were written"
// @Router       /api/v1/configs [post]
func CreateConfigHandler(configs *services.ConfigService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.NewConfigInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		result, err := configs.CreateConfig(c.Request.Context(), middleware.UserEmail(c), input)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}
