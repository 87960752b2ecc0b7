package records

import (
	"testing"
	"time"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want bool
	}{
		{"upper true", "TRUE", true},
		{"lower true", "true", true},
		{"mixed case", "True", true},
		{"padded", "  TRUE ", true},
		{"false", "FALSE", false},
		{"empty", "", false},
		{"yes is not true", "YES", false},
		{"numeric one", "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseBool(tt.cell); got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.cell, got, tt.want)
			}
		})
	}
}

func TestConfigRecordRoundTrip(t *testing.T) {
	rec := ConfigRecord{
		Name:                 "PST01",
		PrimaryRecipients:    []string{"a@b.com", "c@d.com"},
		CCRecipients:         []string{"e@f.com"},
		Active:               true,
		WithholdNoFlagEmails: false,
		LastUpdated:          time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
	}

	row := rec.Row()
	if len(row) != RecipientsColCount {
		t.Fatalf("Row() produced %d cells, want %d", len(row), RecipientsColCount)
	}
	if row[RecipientsColPrimary] != "a@b.com, c@d.com" {
		t.Errorf("primary recipients cell = %q", row[RecipientsColPrimary])
	}
	if row[RecipientsColActive] != "TRUE" || row[RecipientsColWithhold] != "FALSE" {
		t.Errorf("boolean cells = %q / %q", row[RecipientsColActive], row[RecipientsColWithhold])
	}
	if row[RecipientsColUpdated] != "2026-08-27" {
		t.Errorf("last updated cell = %q", row[RecipientsColUpdated])
	}

	back := ConfigFromRow(row)
	if back.Name != rec.Name || !back.Active || back.WithholdNoFlagEmails {
		t.Errorf("decoded record = %+v", back)
	}
	if len(back.PrimaryRecipients) != 2 || back.PrimaryRecipients[1] != "c@d.com" {
		t.Errorf("decoded primary recipients = %v", back.PrimaryRecipients)
	}
	if !back.LastUpdated.Equal(rec.LastUpdated) {
		t.Errorf("decoded last updated = %v", back.LastUpdated)
	}
}

func TestConfigFromRowShortRow(t *testing.T) {
	// Sheets trim trailing blank cells; a name-only row must still decode.
	rec := ConfigFromRow([]string{"AMC01"})
	if rec.Name != "AMC01" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.Active {
		t.Error("short row decoded as active")
	}
	if len(rec.PrimaryRecipients) != 0 {
		t.Errorf("PrimaryRecipients = %v", rec.PrimaryRecipients)
	}
}

func TestThresholdRecordRoundTrip(t *testing.T) {
	rec := ThresholdRecord{
		ConfigName:     "NEXT01",
		FlagType:       FlagOutOfFlightDates,
		MinImpressions: 100,
		MinClicks:      5,
		Active:         true,
	}
	row := rec.Row()
	if row[ThresholdsColFlagType] != "out_of_flight_dates" {
		t.Errorf("flag type cell = %q", row[ThresholdsColFlagType])
	}
	back := ThresholdFromRow(row)
	if back != rec {
		t.Errorf("round trip: got %+v, want %+v", back, rec)
	}
}

func TestThresholdFromRowGarbageNumbers(t *testing.T) {
	rec := ThresholdFromRow([]string{"X", "default_ad_serving", "lots", "", "TRUE"})
	if rec.MinImpressions != 0 || rec.MinClicks != 0 {
		t.Errorf("non-numeric cells decoded as %d/%d, want 0/0", rec.MinImpressions, rec.MinClicks)
	}
}

func TestAuditRequestRow(t *testing.T) {
	at := time.Date(2026, 8, 27, 15, 4, 5, 0, time.UTC)
	req := AuditRequest{
		ConfigName:  "PST01",
		RequestedBy: "user@example.com",
		RequestTime: at,
		Status:      StatusPending,
		Notes:       RequestNote,
	}
	row := req.Row()
	if row[RequestsColTime] != "2026-08-27T15:04:05Z" {
		t.Errorf("request time cell = %q", row[RequestsColTime])
	}
	if row[RequestsColStatus] != "PENDING" {
		t.Errorf("status cell = %q", row[RequestsColStatus])
	}

	back, err := RequestFromRow(row)
	if err != nil {
		t.Fatalf("RequestFromRow: %v", err)
	}
	if !back.RequestTime.Equal(at) || back.Status != StatusPending {
		t.Errorf("decoded request = %+v", back)
	}
}

func TestRequestFromRowBadTime(t *testing.T) {
	_, err := RequestFromRow([]string{"PST01", "", "yesterday", "PENDING", ""})
	if err == nil {
		t.Fatal("expected error for malformed request time")
	}
}

func TestRowBlank(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		n    int
		want bool
	}{
		{"empty row", nil, 5, true},
		{"whitespace only", []string{" ", "", "\t"}, 5, true},
		{"data in tracked region", []string{"", "x"}, 5, false},
		{"data past tracked region ignored", []string{"", "", "", "", "", "", "instructions text"}, 5, true},
		{"short row shorter than n", []string{""}, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RowBlank(tt.row, tt.n); got != tt.want {
				t.Errorf("RowBlank(%v, %d) = %v, want %v", tt.row, tt.n, got, tt.want)
			}
		})
	}
}

func TestFlagTypesOrder(t *testing.T) {
	want := []FlagType{
		FlagClicksGreaterThanImpressions,
		FlagOutOfFlightDates,
		FlagPixelSizeMismatch,
		FlagDefaultAdServing,
	}
	if len(FlagTypes) != len(want) {
		t.Fatalf("FlagTypes has %d entries, want %d", len(FlagTypes), len(want))
	}
	for i, ft := range want {
		if FlagTypes[i] != ft {
			t.Errorf("FlagTypes[%d] = %q, want %q", i, FlagTypes[i], ft)
		}
	}
	if ValidFlagType("made_up_flag") {
		t.Error("ValidFlagType accepted an unknown flag type")
	}
}
