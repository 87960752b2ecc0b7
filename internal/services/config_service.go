// config_service.go implements ConfigService, which coordinates the
// multi-step configuration submission: validate everything up front, append
// the recipients row and the per-flag threshold rows, notify the admin, and
// journal the action. It also owns the in-memory cache of active
// configurations that backs the picker endpoint.
package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/cm360-audit/config-helper/internal/audit"
	"github.com/cm360-audit/config-helper/internal/notify"
	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/store"
	"github.com/cm360-audit/config-helper/internal/telemetry"
	"github.com/cm360-audit/config-helper/internal/validation"
)

// ThresholdInput is the pair of gating values submitted for one flag type.
// Omitted values default to zero, which disables gating for that dimension.
type ThresholdInput struct {
	MinImpressions int `json:"min_impressions"`
	MinClicks      int `json:"min_clicks"`
}

// NewConfigInput is a configuration submission before validation.
type NewConfigInput struct {
	ConfigID   string                              `json:"config_id"`
	Recipients string                              `json:"recipients"`
	CC         string                              `json:"cc"`
	Thresholds map[records.FlagType]ThresholdInput `json:"thresholds"`
}

// CreateResult reports a completed submission. Notified and Channel come from
// the notification dispatcher; Message is the confirmation text shown to the
// submitter, which differs depending on whether the admin was reached.
type CreateResult struct {
	ConfigID string `json:"config_id"`
	Notified bool   `json:"notified"`
	Channel  string `json:"channel,omitempty"`
	Message  string `json:"message"`
}

// ConfigOption is one entry of the configuration picker: just enough to label
// a choice, never the full recipient lists.
type ConfigOption struct {
	Name                 string `json:"name"`
	RecipientCount       int    `json:"recipient_count"`
	CCCount              int    `json:"cc_count"`
	WithholdNoFlagEmails bool   `json:"withhold_no_flag_emails"`
}

// ConfigService owns configuration submission and the active-config cache.
type ConfigService struct {
	recipients *store.RecipientRepository
	thresholds *store.ThresholdRepository
	dispatcher *notify.Dispatcher
	journal    *audit.Journal
	adminEmail string
	now        func() time.Time

	mu     sync.Mutex
	cache  []ConfigOption
	loaded bool
}

// NewConfigService creates the service. adminEmail is the notification target
// for every submission.
func NewConfigService(recipients *store.RecipientRepository, thresholds *store.ThresholdRepository, dispatcher *notify.Dispatcher, journal *audit.Journal, adminEmail string) *ConfigService {
	return &ConfigService{
		recipients: recipients,
		thresholds: thresholds,
		dispatcher: dispatcher,
		journal:    journal,
		adminEmail: adminEmail,
		now:        time.Now,
	}
}

// ListActiveConfigs returns the picker options, served from the cache when it
// is warm. refresh forces a rebuild from the workbook; a cold cache rebuilds
// regardless. A missing recipients tab propagates as sheets.ErrTabNotFound so
// the handler can answer with sync guidance instead of a server error.
func (s *ConfigService) ListActiveConfigs(ctx context.Context, refresh bool) ([]ConfigOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && !refresh {
		return append([]ConfigOption(nil), s.cache...), nil
	}

	trigger := "miss"
	if refresh && s.loaded {
		trigger = "forced"
	}

	active, err := s.recipients.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	options := make([]ConfigOption, 0, len(active))
	for _, rec := range active {
		options = append(options, ConfigOption{
			Name:                 rec.Name,
			RecipientCount:       len(rec.PrimaryRecipients),
			CCCount:              len(rec.CCRecipients),
			WithholdNoFlagEmails: rec.WithholdNoFlagEmails,
		})
	}

	s.cache = options
	s.loaded = true
	telemetry.ConfigCacheRefreshesTotal.WithLabelValues(trigger).Inc()
	telemetry.ActiveConfigsCount.Set(float64(len(options)))
	return append([]ConfigOption(nil), options...), nil
}

// Invalidate drops the cache so the next read rebuilds from the workbook.
// Called after every successful submission.
func (s *ConfigService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.loaded = false
}

// CreateConfig validates and stores a new configuration. actor is the
// authenticated submitter, or empty when identity is unavailable.
//
// The write sequence is recipients row first, then the four threshold rows.
// There is no rollback: when the threshold batch fails partway, the rows
// already written stay, and the returned error says exactly what landed so
// the user can tell the admin what to clean up.
func (s *ConfigService) CreateConfig(ctx context.Context, actor string, in NewConfigInput) (CreateResult, error) {
	configID, thresholdRecs, err := s.validate(in)
	if err != nil {
		return CreateResult{}, err
	}

	submitter := actor
	if submitter == "" {
		submitter = "Unknown"
	}

	rec := records.ConfigRecord{
		Name:                 configID,
		PrimaryRecipients:    records.SplitEmails(in.Recipients),
		CCRecipients:         records.SplitEmails(in.CC),
		Active:               true,
		WithholdNoFlagEmails: false,
		LastUpdated:          s.now(),
	}

	if err := s.recipients.Append(ctx, rec); err != nil {
		return CreateResult{}, fmt.Errorf("failed to create config %s (nothing was written): %w", configID, err)
	}
	if err := s.thresholds.AppendBatch(ctx, thresholdRecs); err != nil {
		return CreateResult{}, fmt.Errorf("failed to create config %s (recipients row was written, threshold rows are incomplete): %w", configID, err)
	}
	telemetry.ConfigCreationsTotal.Inc()

	result := s.dispatcher.Dispatch(ctx, configCreatedMessage(s.adminEmail, configID, submitter, in, thresholdRecs))

	s.journal.Record(ctx, audit.Event{
		Action:      audit.ActionConfigCreate,
		Actor:       actor,
		ConfigID:    configID,
		NotifiedVia: result.Channel,
		Metadata: map[string]interface{}{
			"recipients": in.Recipients,
			"cc":         in.CC,
		},
	})
	s.Invalidate()

	return CreateResult{
		ConfigID: configID,
		Notified: result.Delivered(),
		Channel:  result.Channel,
		Message:  confirmationText(configID, s.adminEmail, result.Delivered()),
	}, nil
}

// validate checks the whole submission and materializes the threshold rows in
// the fixed flag-type order. Unknown flag-type keys are rejected rather than
// silently dropped.
func (s *ConfigService) validate(in NewConfigInput) (string, []records.ThresholdRecord, error) {
	configID, err := validation.NormalizeConfigID(in.ConfigID)
	if err != nil {
		return "", nil, &ValidationError{Message: err.Error()}
	}
	if err := validation.ValidateRecipients(in.Recipients); err != nil {
		return "", nil, &ValidationError{Message: err.Error()}
	}
	if err := validation.ValidateOptionalRecipients(in.CC); err != nil {
		return "", nil, &ValidationError{Message: fmt.Sprintf("cc list: %s", err)}
	}
	for ft := range in.Thresholds {
		if !records.ValidFlagType(ft) {
			return "", nil, &ValidationError{Message: fmt.Sprintf("unknown flag type %q", ft)}
		}
	}

	recs := make([]records.ThresholdRecord, 0, len(records.FlagTypes))
	for _, ft := range records.FlagTypes {
		t := in.Thresholds[ft]
		if err := validation.ValidateThreshold(fmt.Sprintf("%s min impressions", ft), t.MinImpressions); err != nil {
			return "", nil, &ValidationError{Message: err.Error()}
		}
		if err := validation.ValidateThreshold(fmt.Sprintf("%s min clicks", ft), t.MinClicks); err != nil {
			return "", nil, &ValidationError{Message: err.Error()}
		}
		recs = append(recs, records.ThresholdRecord{
			ConfigName:     configID,
			FlagType:       ft,
			MinImpressions: t.MinImpressions,
			MinClicks:      t.MinClicks,
			Active:         true,
		})
	}
	return configID, recs, nil
}

// confirmationText builds the submitter-facing confirmation. When every
// notification channel failed, the text asks the submitter to forward the
// details manually instead of pretending the admin knows.
func confirmationText(configID, adminEmail string, notified bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config %s has been successfully created!\n\n", configID)
	b.WriteString("Added to the config workbook:\n")
	b.WriteString("- Audit Recipients: 1 row\n")
	fmt.Fprintf(&b, "- Audit Thresholds: %d rows\n\n", len(records.FlagTypes))
	if notified {
		b.WriteString("Admin has been notified and will:\n")
	} else {
		fmt.Fprintf(&b, "Admin notification failed to send automatically. Please forward this message to %s and include the details above. Admin will:\n", adminEmail)
	}
	b.WriteString("1. Sync the config into the main system\n")
	b.WriteString("2. Create mail labels and report folders\n")
	b.WriteString("3. Set up email filters\n\n")
	b.WriteString("You should receive confirmation once setup is complete.")
	return b.String()
}

// configCreatedMessage builds the admin notification for a new configuration,
// in paired plain and HTML forms.
func configCreatedMessage(adminEmail, configID, submitter string, in NewConfigInput, thresholds []records.ThresholdRecord) notify.Message {
	cc := in.CC
	if strings.TrimSpace(cc) == "" {
		cc = "None"
	}

	var summary strings.Builder
	for i, t := range thresholds {
		if i > 0 {
			summary.WriteByte('\n')
		}
		fmt.Fprintf(&summary, "  %s: %d impressions, %d clicks", t.FlagType, t.MinImpressions, t.MinClicks)
	}

	plain := fmt.Sprintf("New CM360 config created via Helper Menu\n\n"+
		"Config ID: %s\n"+
		"Created by: %s\n"+
		"Recipients: %s\n"+
		"CC: %s\n\n"+
		"Thresholds:\n%s\n\n"+
		"Next steps:\n"+
		" 1) Sync the new config into the main system\n"+
		" 2) Prepare the environment (labels, report folders)\n"+
		" 3) Create mail filters for Daily Audits/CM360/%s",
		configID, submitter, in.Recipients, cc, summary.String(), configID)

	htmlBody := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width:600px;">
  <h3 style="color:#1a73e8;">New CM360 Config Created</h3>
  <p>A new configuration has been created via the Helper Menu:</p>
  <table style="border-collapse:collapse; margin:10px 0; width:100%%;">
    <tr><td style="padding:8px; font-weight:bold; border:1px solid #ddd;">Config ID:</td><td style="padding:8px; border:1px solid #ddd;">%s</td></tr>
    <tr><td style="padding:8px; font-weight:bold; border:1px solid #ddd;">Created by:</td><td style="padding:8px; border:1px solid #ddd;">%s</td></tr>
    <tr><td style="padding:8px; font-weight:bold; border:1px solid #ddd;">Recipients:</td><td style="padding:8px; border:1px solid #ddd;">%s</td></tr>
    <tr><td style="padding:8px; font-weight:bold; border:1px solid #ddd;">CC:</td><td style="padding:8px; border:1px solid #ddd;">%s</td></tr>
  </table>
  <h4>Thresholds Added:</h4>
  <pre style="background:#f8f9fa; padding:10px; border-left:3px solid #1a73e8;">%s</pre>
  <h4>Next Steps:</h4>
  <ol>
    <li>Sync the new config into the main system</li>
    <li>Prepare the environment (mail labels and report folders)</li>
    <li>Set up mail filters to route reports to Daily Audits/CM360/%s</li>
  </ol>
  <p>The config has been added to the <strong>Audit Recipients</strong> and <strong>Audit Thresholds</strong> tabs.</p>
</div>`,
		html.EscapeString(configID), html.EscapeString(submitter), html.EscapeString(in.Recipients),
		html.EscapeString(cc), html.EscapeString(summary.String()), html.EscapeString(configID))

	return notify.Message{
		To:       adminEmail,
		Subject:  fmt.Sprintf("New CM360 Config Created: %s", configID),
		TextBody: plain,
		HTMLBody: htmlBody,
	}
}
