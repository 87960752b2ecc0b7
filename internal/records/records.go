// Package records defines the typed row records stored in the audit config
// workbook and the column-index mapping between those records and raw sheet
// rows. The tabs themselves have no schema enforcement (a row is just an
// ordered list of cell strings), so all positional knowledge lives here, in one
// translation layer, instead of being scattered through the repositories.
package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tab names inside the config workbook. Column order in each tab is significant
// and fixed by the header constants below.
const (
	RecipientsTab = "Audit Recipients"
	ThresholdsTab = "Audit Thresholds"
	RequestsTab   = "Audit Requests"
	ExclusionsTab = "Audit Exclusions"
)

// FlagType is one of the fixed audit rule categories whose gating thresholds
// are configurable per config.
type FlagType string

const (
	FlagClicksGreaterThanImpressions FlagType = "clicks_greater_than_impressions"
	FlagOutOfFlightDates             FlagType = "out_of_flight_dates"
	FlagPixelSizeMismatch            FlagType = "pixel_size_mismatch"
	FlagDefaultAdServing             FlagType = "default_ad_serving"
)

// FlagTypes lists every flag type in the fixed enumeration order used when
// threshold rows are appended at config-creation time.
var FlagTypes = []FlagType{
	FlagClicksGreaterThanImpressions,
	FlagOutOfFlightDates,
	FlagPixelSizeMismatch,
	FlagDefaultAdServing,
}

// Label returns the human-readable name of a flag type for forms and reports.
func (ft FlagType) Label() string {
	switch ft {
	case FlagClicksGreaterThanImpressions:
		return "Clicks Greater Than Impressions"
	case FlagOutOfFlightDates:
		return "Out of Flight Dates"
	case FlagPixelSizeMismatch:
		return "Pixel Size Mismatch"
	case FlagDefaultAdServing:
		return "Default Ad Serving"
	}
	return string(ft)
}

// ValidFlagType reports whether ft is one of the enumerated flag types.
func ValidFlagType(ft FlagType) bool {
	for _, known := range FlagTypes {
		if ft == known {
			return true
		}
	}
	return false
}

// RequestStatus is the lifecycle state of an AuditRequest. This service only
// ever writes StatusPending; terminal values are assigned by an external admin
// process.
type RequestStatus string

const StatusPending RequestStatus = "PENDING"

// RequestNote is the fixed provenance string written into the Notes column of
// every request created through this service.
const RequestNote = "Requested via Helper Menu"

// Column indexes (0-based) for the Audit Recipients tab.
const (
	RecipientsColName = iota
	RecipientsColPrimary
	RecipientsColCC
	RecipientsColActive
	RecipientsColWithhold
	RecipientsColUpdated
	RecipientsColCount
)

// Column indexes (0-based) for the Audit Thresholds tab.
const (
	ThresholdsColName = iota
	ThresholdsColFlagType
	ThresholdsColMinImpressions
	ThresholdsColMinClicks
	ThresholdsColActive
	ThresholdsColCount
)

// Column indexes (0-based) for the tracked A–E region of the Audit Requests
// tab. Columns past E may hold unrelated content (the INSTRUCTIONS block) and
// are never read or written by request intake.
const (
	RequestsColName = iota
	RequestsColRequestedBy
	RequestsColTime
	RequestsColStatus
	RequestsColNotes
	RequestsColCount
)

// ExclusionsColActive is the 0-based index of the Active column in the
// externally-owned Audit Exclusions tab (column K).
const ExclusionsColActive = 10

// Expected header rows, in column order.
var (
	RecipientsHeader = []string{"Config Name", "Primary Recipients", "CC Recipients", "Active", "Withhold No-Flag Emails", "Last Updated"}
	ThresholdsHeader = []string{"Config Name", "Flag Type", "Min Impressions", "Min Clicks", "Active"}
	RequestsHeader   = []string{"Config Name", "Requested By", "Request Time", "Status", "Notes"}
)

// ConfigRecord is one row of the Audit Recipients tab: a named audit profile
// bundling recipient lists and delivery flags. Rows are created once at
// submission time and owned by the admin afterwards.
type ConfigRecord struct {
	Name                 string
	PrimaryRecipients    []string
	CCRecipients         []string
	Active               bool
	WithholdNoFlagEmails bool
	LastUpdated          time.Time
}

// ThresholdRecord is one row of the Audit Thresholds tab: the gating values for
// a single flag type under a named config. How the thresholds gate a flag is
// the audit engine's concern, not this service's.
type ThresholdRecord struct {
	ConfigName     string
	FlagType       FlagType
	MinImpressions int
	MinClicks      int
	Active         bool
}

// AuditRequest is one row of the tracked A–E region of the Audit Requests tab.
// RequestTime doubles as the human-facing request id.
type AuditRequest struct {
	ConfigName  string
	RequestedBy string
	RequestTime time.Time
	Status      RequestStatus
	Notes       string
}

// dateLayout is the storage format of the Last Updated column.
const dateLayout = "2006-01-02"

// ParseBool interprets a cell as the sheet-style boolean: the literal TRUE
// (any case, surrounding whitespace ignored) is true, everything else false.
func ParseBool(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), "TRUE")
}

// FormatBool renders a boolean in the sheet-style upper-case form.
func FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// SplitEmails splits a comma-separated recipient cell into trimmed non-empty
// addresses, preserving order.
func SplitEmails(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// JoinEmails renders an address list back into the comma-separated storage form.
func JoinEmails(addrs []string) string {
	return strings.Join(addrs, ", ")
}

// Row renders the record in Audit Recipients column order.
func (c ConfigRecord) Row() []string {
	return []string{
		c.Name,
		JoinEmails(c.PrimaryRecipients),
		JoinEmails(c.CCRecipients),
		FormatBool(c.Active),
		FormatBool(c.WithholdNoFlagEmails),
		c.LastUpdated.Format(dateLayout),
	}
}

// ConfigFromRow decodes a raw Audit Recipients row. Short rows are tolerated
// (trailing blank cells are routinely trimmed by the store); a missing Last
// Updated cell yields a zero time rather than an error.
func ConfigFromRow(row []string) ConfigRecord {
	rec := ConfigRecord{
		Name:                 strings.TrimSpace(cellAt(row, RecipientsColName)),
		PrimaryRecipients:    SplitEmails(cellAt(row, RecipientsColPrimary)),
		CCRecipients:         SplitEmails(cellAt(row, RecipientsColCC)),
		Active:               ParseBool(cellAt(row, RecipientsColActive)),
		WithholdNoFlagEmails: ParseBool(cellAt(row, RecipientsColWithhold)),
	}
	if raw := strings.TrimSpace(cellAt(row, RecipientsColUpdated)); raw != "" {
		if t, err := time.Parse(dateLayout, raw); err == nil {
			rec.LastUpdated = t
		}
	}
	return rec
}

// Row renders the record in Audit Thresholds column order.
func (t ThresholdRecord) Row() []string {
	return []string{
		t.ConfigName,
		string(t.FlagType),
		strconv.Itoa(t.MinImpressions),
		strconv.Itoa(t.MinClicks),
		FormatBool(t.Active),
	}
}

// ThresholdFromRow decodes a raw Audit Thresholds row. Non-numeric threshold
// cells decode as zero; callers that care should validate before writing.
func ThresholdFromRow(row []string) ThresholdRecord {
	return ThresholdRecord{
		ConfigName:     strings.TrimSpace(cellAt(row, ThresholdsColName)),
		FlagType:       FlagType(strings.TrimSpace(cellAt(row, ThresholdsColFlagType))),
		MinImpressions: cellInt(row, ThresholdsColMinImpressions),
		MinClicks:      cellInt(row, ThresholdsColMinClicks),
		Active:         ParseBool(cellAt(row, ThresholdsColActive)),
	}
}

// Row renders the request in Audit Requests A–E column order. RequestTime is
// stored as RFC 3339 so it sorts lexicographically and reads back losslessly.
func (r AuditRequest) Row() []string {
	return []string{
		r.ConfigName,
		r.RequestedBy,
		r.RequestTime.UTC().Format(time.RFC3339),
		string(r.Status),
		r.Notes,
	}
}

// RequestFromRow decodes the tracked A–E region of an Audit Requests row.
func RequestFromRow(row []string) (AuditRequest, error) {
	req := AuditRequest{
		ConfigName:  strings.TrimSpace(cellAt(row, RequestsColName)),
		RequestedBy: strings.TrimSpace(cellAt(row, RequestsColRequestedBy)),
		Status:      RequestStatus(strings.TrimSpace(cellAt(row, RequestsColStatus))),
		Notes:       cellAt(row, RequestsColNotes),
	}
	raw := strings.TrimSpace(cellAt(row, RequestsColTime))
	if raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return req, fmt.Errorf("request row has malformed request time %q: %w", raw, err)
		}
		req.RequestTime = t
	}
	return req, nil
}

// RowBlank reports whether every cell in the first n columns of row is blank.
// Cells past n never count: a row whose only content is the INSTRUCTIONS block
// is still a reusable slot for request intake.
func RowBlank(row []string, n int) bool {
	for i := 0; i < n && i < len(row); i++ {
		if strings.TrimSpace(row[i]) != "" {
			return false
		}
	}
	return true
}

func cellAt(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func cellInt(row []string, idx int) int {
	n, err := strconv.Atoi(strings.TrimSpace(cellAt(row, idx)))
	if err != nil {
		return 0
	}
	return n
}
