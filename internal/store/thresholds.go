// thresholds.go implements ThresholdRepository, the writer and counter for the
// Audit Thresholds tab.
package store

import (
	"context"
	"fmt"

	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/sheets"
)

// ThresholdRepository handles rows of the Audit Thresholds tab.
type ThresholdRepository struct {
	wb sheets.Workbook
}

// NewThresholdRepository creates a new threshold repository.
func NewThresholdRepository(wb sheets.Workbook) *ThresholdRepository {
	return &ThresholdRepository{wb: wb}
}

// AppendBatch adds the given threshold rows in slice order, creating the tab
// with its styled header first if needed. Appends are sequential; on error the
// rows written so far stay written, and the error names how far the batch got
// so the caller can report the partial state.
func (r *ThresholdRepository) AppendBatch(ctx context.Context, recs []records.ThresholdRecord) error {
	tab, err := r.wb.EnsureTab(ctx, records.ThresholdsTab)
	if err != nil {
		return fmt.Errorf("failed to open thresholds tab: %w", err)
	}
	if err := sheets.EnsureSchema(ctx, tab, records.ThresholdsHeader, nil); err != nil {
		return fmt.Errorf("failed to prepare thresholds tab: %w", err)
	}
	for i, rec := range recs {
		if err := tab.Append(ctx, rec.Row()); err != nil {
			return fmt.Errorf("failed to append threshold row %d of %d (%s): %w", i+1, len(recs), rec.FlagType, err)
		}
	}
	return nil
}

// CountActiveConfigs returns the number of distinct configuration names among
// active threshold rows. A missing tab surfaces as sheets.ErrTabNotFound.
func (r *ThresholdRepository) CountActiveConfigs(ctx context.Context) (int, error) {
	tab, err := r.wb.Tab(ctx, records.ThresholdsTab)
	if err != nil {
		return 0, fmt.Errorf("thresholds tab: %w", err)
	}
	values, err := tab.Values(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read thresholds tab: %w", err)
	}

	names := make(map[string]struct{})
	for i := 1; i < len(values); i++ {
		rec := records.ThresholdFromRow(values[i])
		if rec.ConfigName != "" && rec.Active {
			names[rec.ConfigName] = struct{}{}
		}
	}
	return len(names), nil
}
