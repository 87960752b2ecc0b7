// requests.go implements the audit request intake endpoint.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cm360-audit/config-helper/internal/middleware"
	"github.com/cm360-audit/config-helper/internal/services"
)

// auditRequestBody is the POST /api/v1/requests payload.
type auditRequestBody struct {
	ConfigName string `json:"config_name"`
}

// @Summary      Request an audit
// @Description  Log a pending audit request for a configuration and notify the admin. The requester comes from the identity middleware and may be anonymous.
// @Tags         Requests
// @Accept       json
// @Produce      json
// @Param        body  body  auditRequestBody  true  "config_name"
// @Success      201  {object}  services.RequestResult  "request_id is the RFC 3339 request timestamp"
// @Failure      400  {object}  map[string]interface{}  "Missing or blank config_name"
// @Failure      500  {object}  map[string]interface{}  "Request could not be logged"
// @Router       /api/v1/requests [post]
func CreateRequestHandler(requests *services.RequestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body auditRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		result, err := requests.Request(c.Request.Context(), middleware.UserEmail(c), body.ConfigName)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}
