// request_service.go implements RequestService, the intake flow for manual
// audit runs: one row in the request log, an admin notification, and a journal
// entry. The service assigns no synthetic id; the RFC 3339 request timestamp
// is the identifier users quote back to admins.
package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/cm360-audit/config-helper/internal/audit"
	"github.com/cm360-audit/config-helper/internal/notify"
	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/store"
	"github.com/cm360-audit/config-helper/internal/telemetry"
)

// RequestResult reports a logged audit request.
type RequestResult struct {
	ConfigName string `json:"config_name"`
	// RequestID is the RFC 3339 request timestamp.
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Notified  bool   `json:"notified"`
	Channel   string `json:"channel,omitempty"`
}

// RequestService owns audit request intake.
type RequestService struct {
	requests    *store.RequestRepository
	dispatcher  *notify.Dispatcher
	journal     *audit.Journal
	adminEmail  string
	requestsURL string
	now         func() time.Time
}

// NewRequestService creates the service. requestsURL is the human-facing link
// to the request log included in admin notifications; empty omits the link.
func NewRequestService(requests *store.RequestRepository, dispatcher *notify.Dispatcher, journal *audit.Journal, adminEmail, requestsURL string) *RequestService {
	return &RequestService{
		requests:    requests,
		dispatcher:  dispatcher,
		journal:     journal,
		adminEmail:  adminEmail,
		requestsURL: requestsURL,
		now:         time.Now,
	}
}

// Request logs one audit request for the named configuration. requester is the
// authenticated user's email and may be empty. The request row is the source
// of truth: once it is written the operation has succeeded, and notification
// failure only softens the response, never fails it.
func (s *RequestService) Request(ctx context.Context, requester, configName string) (RequestResult, error) {
	name := strings.TrimSpace(configName)
	if name == "" {
		return RequestResult{}, &ValidationError{Message: "config name is required"}
	}

	req := records.AuditRequest{
		ConfigName:  name,
		RequestedBy: requester,
		RequestTime: s.now().UTC().Truncate(time.Second),
		Status:      records.StatusPending,
		Notes:       records.RequestNote,
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return RequestResult{}, fmt.Errorf("failed to submit audit request for %s: %w", name, err)
	}
	telemetry.AuditRequestsTotal.Inc()

	requestID := req.RequestTime.Format(time.RFC3339)
	result := s.dispatcher.Dispatch(ctx, auditRequestMessage(s.adminEmail, name, requester, requestID, s.requestsURL))

	s.journal.Record(ctx, audit.Event{
		Action:      audit.ActionAuditRequest,
		Actor:       requester,
		ConfigID:    name,
		RequestID:   requestID,
		NotifiedVia: result.Channel,
	})

	return RequestResult{
		ConfigName: name,
		RequestID:  requestID,
		Status:     string(records.StatusPending),
		Notified:   result.Delivered(),
		Channel:    result.Channel,
	}, nil
}

// auditRequestMessage builds the admin notification for a logged request.
func auditRequestMessage(adminEmail, configName, requester, requestID, requestsURL string) notify.Message {
	plain := fmt.Sprintf("A new CM360 audit has been requested.\n\n"+
		"Config: %s\n"+
		"Requested by: %s\n"+
		"Time: %s\n",
		configName, requester, requestID)
	if requestsURL != "" {
		plain += fmt.Sprintf("\nAudit Requests: %s", requestsURL)
	}

	link := ""
	if requestsURL != "" {
		link = fmt.Sprintf(`  <p>Please check the <a href="%s" style="color:#1a73e8; text-decoration:none;">Audit Requests sheet</a>.</p>`,
			html.EscapeString(requestsURL))
	}
	htmlBody := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width:600px;">
  <h3 style="color:#1a73e8;">CM360 Audit Request</h3>
  <p>A new audit has been requested:</p>
  <table style="border-collapse:collapse; margin:10px 0;">
    <tr><td style="padding:5px; font-weight:bold;">Config:</td><td style="padding:5px;">%s</td></tr>
    <tr><td style="padding:5px; font-weight:bold;">Requested by:</td><td style="padding:5px;">%s</td></tr>
    <tr><td style="padding:5px; font-weight:bold;">Time:</td><td style="padding:5px;">%s</td></tr>
  </table>
%s</div>`,
		html.EscapeString(configName), html.EscapeString(requester), html.EscapeString(requestID), link)

	return notify.Message{
		To:       adminEmail,
		Subject:  fmt.Sprintf("CM360 Audit Request: %s", configName),
		TextBody: plain,
		HTMLBody: htmlBody,
	}
}
