// exclusions.go implements ExclusionRepository, a read-only view of the Audit
// Exclusions tab. That tab is owned and populated by an external admin
// process; this service only counts active rules for the summary and must
// never create or modify it.
package store

import (
	"context"
	"fmt"

	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/sheets"
)

// ExclusionRepository reads the externally-owned Audit Exclusions tab.
type ExclusionRepository struct {
	wb sheets.Workbook
}

// NewExclusionRepository creates a new exclusion repository.
func NewExclusionRepository(wb sheets.Workbook) *ExclusionRepository {
	return &ExclusionRepository{wb: wb}
}

// CountActiveRules returns the number of rows, header excluded, whose Active
// column (column K) is TRUE. A missing tab surfaces as sheets.ErrTabNotFound.
func (r *ExclusionRepository) CountActiveRules(ctx context.Context) (int, error) {
	tab, err := r.wb.Tab(ctx, records.ExclusionsTab)
	if err != nil {
		return 0, fmt.Errorf("exclusions tab: %w", err)
	}
	values, err := tab.Values(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read exclusions tab: %w", err)
	}

	count := 0
	for i := 1; i < len(values); i++ {
		row := values[i]
		if records.ExclusionsColActive < len(row) && records.ParseBool(row[records.ExclusionsColActive]) {
			count++
		}
	}
	return count, nil
}
