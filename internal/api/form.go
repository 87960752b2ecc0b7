// form.go serves the new-config form dialog as a self-contained HTML page.
//
// The page mirrors the submission flow: client-side checks catch the obvious
// mistakes (blank or malformed email lists) before the POST, and the server
// revalidates everything. The embedded report-setup block documents the CM360
// daily report each new config depends on.
package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cm360-audit/config-helper/internal/config"
	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/validation"
)

// @Summary      New config form
// @Description  Serve the HTML form for creating a configuration. The config_id query parameter is normalized and validated before the page renders.
// @Tags         Configs
// @Produce      html
// @Param        config_id  query  string  true  "Config identifier; trimmed, uppercased, must match [A-Z0-9]+"
// @Success      200  {string}  string  "HTML form"
// @Failure      400  {object}  map[string]interface{}  "Invalid config id"
// @Router       /configs/new [get]
func NewConfigFormHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		configID, err := validation.NormalizeConfigID(c.Query("config_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// The page carries inline style and script, which the global CSP
		// forbids. A per-request nonce lets exactly this markup run while
		// keeping the policy strict for everything else.
		nb := make([]byte, 16)
		if _, err := rand.Read(nb); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate nonce"})
			return
		}
		nonce := base64.StdEncoding.EncodeToString(nb)
		c.Header("Content-Security-Policy", fmt.Sprintf(
			"default-src 'self'; script-src 'nonce-%s'; style-src 'nonce-%s'; frame-ancestors 'none'",
			nonce, nonce,
		))

		page := newConfigFormHTML(configID, cfg.Notifications.AdminEmail, nonce)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	}
}

func newConfigFormHTML(configID, adminEmail, nonce string) string {
	id := html.EscapeString(configID)
	admin := html.EscapeString(adminEmail)
	if admin == "" {
		admin = "your administrator"
	}

	var thresholdRows strings.Builder
	for _, ft := range records.FlagTypes {
		fmt.Fprintf(&thresholdRows, `
      <div class="row">
        <div>%s</div>
        <input type="number" id="t_%s_i" value="0" min="0">
        <input type="number" id="t_%s_c" value="0" min="0">
      </div>`, html.EscapeString(ft.Label()), ft, ft)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <title>Create New Config: %[1]s</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style nonce="%[5]s">
      body { font-family: Arial, sans-serif; padding: 20px; max-width: 600px; }
      .field { margin: 15px 0; }
      .field input { width: 100%%; padding: 5px; box-sizing: border-box; }
      .row { display: grid; grid-template-columns: 2fr 1fr 1fr; gap: 10px; margin: 5px 0; align-items: center; }
      .row input { padding: 3px; }
      .row.head { font-weight: bold; margin: 10px 0; }
      .row.head div { text-align: center; }
      .row.head div:first-child { text-align: left; }
      .notes { background: #f8f9fa; padding: 15px; margin: 20px 0; border-left: 4px solid #1a73e8; font-size: 13px; }
      .actions { margin-top: 20px; }
      button { color: white; padding: 10px 20px; border: none; border-radius: 4px; cursor: pointer; }
      #submit { background: #1a73e8; }
      #result { margin-top: 15px; white-space: pre-wrap; }
    </style>
  </head>
  <body>
    <h3>Create New Config: %[1]s</h3>

    <div class="field">
      <label><strong>Recipients (required):</strong></label><br>
      <input type="email" id="recipients" placeholder="email1@company.com, email2@company.com" required>
    </div>

    <div class="field">
      <label><strong>CC Recipients (optional):</strong></label><br>
      <input type="email" id="cc" placeholder="cc1@company.com, cc2@company.com">
    </div>

    <h4>Thresholds for Flag Types:</h4>

    <div class="row head">
      <div>Flag Type</div>
      <div>Min Impressions</div>
      <div>Min Clicks</div>
    </div>
%[2]s

    <div class="notes">
      <h4>CM360 Daily Reports Requirements</h4>

      <p><strong>Basic Info:</strong><br>
      Name: NETWORKNAME_ImpClickReport_DailyAudit_%[1]s<br>
      Network Name should be the name of the DCM network (shorthand notation is fine)</p>

      <p><strong>Date Range:</strong> Yesterday</p>

      <p><strong>Scheduling:</strong> Daily, starts today, ends as late as possible, format Excel (Attachment)</p>

      <p>Reach out to %[3]s with any questions</p>
    </div>

    <div class="actions">
      <button id="submit" onclick="submitForm()">Submit New Config</button>
    </div>
    <div id="result"></div>

    <script nonce="%[5]s">
      function validateEmail(email) {
        return /^[^\s@]+@[^\s@]+\.[^\s@]+$/.test(email);
      }

      function validateEmails(emailString) {
        if (!emailString.trim()) return false;
        return emailString.split(',').map(function (e) { return e.trim(); }).every(validateEmail);
      }

      function thresholdValue(id) {
        return Number(document.getElementById(id).value || 0);
      }

      function submitForm() {
        var recipients = document.getElementById('recipients').value.trim();
        var cc = document.getElementById('cc').value.trim();

        if (!recipients) {
          alert('Please enter at least one recipient email address.');
          return;
        }
        if (!validateEmails(recipients)) {
          alert('Please enter valid recipient email addresses (comma-separated).');
          return;
        }
        if (cc && !validateEmails(cc)) {
          alert('Please enter valid CC email addresses (comma-separated).');
          return;
        }

        var flagTypes = %[4]s;
        var thresholds = {};
        flagTypes.forEach(function (ft) {
          thresholds[ft] = {
            min_impressions: thresholdValue('t_' + ft + '_i'),
            min_clicks: thresholdValue('t_' + ft + '_c')
          };
        });

        fetch('/api/v1/configs', {
          method: 'POST',
          headers: { 'Content-Type': 'application/json' },
          body: JSON.stringify({
            config_id: '%[1]s',
            recipients: recipients,
            cc: cc,
            thresholds: thresholds
          })
        }).then(function (resp) {
          return resp.json().then(function (data) {
            document.getElementById('result').textContent =
              resp.ok ? data.message : ('Failed to create config: ' + data.error);
          });
        }).catch(function (err) {
          document.getElementById('result').textContent = 'Failed to create config: ' + err;
        });
      }
    </script>
  </body>
</html>`, id, thresholdRows.String(), admin, flagTypesJSON(), nonce)
}

// flagTypesJSON renders the flag type identifiers as a JS array literal so the
// form and the enumeration order cannot drift apart.
func flagTypesJSON() string {
	parts := make([]string, len(records.FlagTypes))
	for i, ft := range records.FlagTypes {
		parts[i] = fmt.Sprintf("%q", string(ft))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
