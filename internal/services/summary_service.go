// summary_service.go implements the read-only configuration summary: active
// config counts from recipients and thresholds plus the active exclusion rule
// count. A missing tab is a normal state for an unsynced workbook, so it
// renders as a "sheet missing" line instead of failing the whole report.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cm360-audit/config-helper/internal/sheets"
	"github.com/cm360-audit/config-helper/internal/store"
)

// TabSummary is one line of the report: a count, or a missing sheet.
type TabSummary struct {
	Count   int  `json:"count"`
	Missing bool `json:"missing"`
}

// Summary is the three-section configuration report.
type Summary struct {
	Recipients TabSummary `json:"recipients"`
	Thresholds TabSummary `json:"thresholds"`
	Exclusions TabSummary `json:"exclusions"`
}

// Text renders the report as the multi-line form shown to users.
func (s Summary) Text() string {
	var b strings.Builder
	b.WriteString("Configuration Summary:\n\n")
	writeLine(&b, "Recipients", s.Recipients, "active configs")
	writeLine(&b, "Thresholds", s.Thresholds, "active configs")
	writeLine(&b, "Exclusions", s.Exclusions, "active rules")
	return b.String()
}

func writeLine(b *strings.Builder, label string, ts TabSummary, unit string) {
	if ts.Missing {
		fmt.Fprintf(b, "%s: sheet missing\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %d %s\n", label, ts.Count, unit)
}

// SummaryService reads counts across the three tabs.
type SummaryService struct {
	recipients *store.RecipientRepository
	thresholds *store.ThresholdRepository
	exclusions *store.ExclusionRepository
}

// NewSummaryService creates the service.
func NewSummaryService(recipients *store.RecipientRepository, thresholds *store.ThresholdRepository, exclusions *store.ExclusionRepository) *SummaryService {
	return &SummaryService{recipients: recipients, thresholds: thresholds, exclusions: exclusions}
}

// Summarize builds the report. Only backend failures propagate as errors;
// absent tabs are folded into the result.
func (s *SummaryService) Summarize(ctx context.Context) (Summary, error) {
	var out Summary
	var err error

	if out.Recipients, err = tabSummary(s.recipients.CountActiveConfigs(ctx)); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize recipients: %w", err)
	}
	if out.Thresholds, err = tabSummary(s.thresholds.CountActiveConfigs(ctx)); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize thresholds: %w", err)
	}
	if out.Exclusions, err = tabSummary(s.exclusions.CountActiveRules(ctx)); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize exclusions: %w", err)
	}
	return out, nil
}

// tabSummary folds a repository count into a TabSummary, converting a missing
// tab into the Missing state.
func tabSummary(count int, err error) (TabSummary, error) {
	if err != nil {
		if errors.Is(err, sheets.ErrTabNotFound) {
			return TabSummary{Missing: true}, nil
		}
		return TabSummary{}, err
	}
	return TabSummary{Count: count}, nil
}
