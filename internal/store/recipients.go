// Package store implements per-tab repositories over the config workbook.
// Each repository owns exactly one tab and translates between typed records
// and raw cell rows; it never looks at another repository's tab. Write paths
// create their tab and repair its header lazily, read paths report a missing
// tab as sheets.ErrTabNotFound so callers can distinguish "not synced yet"
// from a hard backend failure.
package store

import (
	"context"
	"fmt"

	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/sheets"
)

// RecipientRepository handles rows of the Audit Recipients tab.
type RecipientRepository struct {
	wb sheets.Workbook
}

// NewRecipientRepository creates a new recipient repository.
func NewRecipientRepository(wb sheets.Workbook) *RecipientRepository {
	return &RecipientRepository{wb: wb}
}

// Append adds one configuration row, creating the tab with its styled header
// first if needed. Existing rows are never touched; edits after creation
// belong to the admin.
func (r *RecipientRepository) Append(ctx context.Context, rec records.ConfigRecord) error {
	tab, err := r.wb.EnsureTab(ctx, records.RecipientsTab)
	if err != nil {
		return fmt.Errorf("failed to open recipients tab: %w", err)
	}
	if err := sheets.EnsureSchema(ctx, tab, records.RecipientsHeader, nil); err != nil {
		return fmt.Errorf("failed to prepare recipients tab: %w", err)
	}
	if err := tab.Append(ctx, rec.Row()); err != nil {
		return fmt.Errorf("failed to append recipient row: %w", err)
	}
	return nil
}

// ListActive returns the configurations whose Active cell is TRUE and whose
// name is non-empty, in sheet order. A missing tab surfaces as
// sheets.ErrTabNotFound; this method never creates it.
func (r *RecipientRepository) ListActive(ctx context.Context) ([]records.ConfigRecord, error) {
	tab, err := r.wb.Tab(ctx, records.RecipientsTab)
	if err != nil {
		return nil, fmt.Errorf("recipients tab: %w", err)
	}
	values, err := tab.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipients tab: %w", err)
	}

	var out []records.ConfigRecord
	for i := 1; i < len(values); i++ {
		rec := records.ConfigFromRow(values[i])
		if rec.Name != "" && rec.Active {
			out = append(out, rec)
		}
	}
	return out, nil
}

// CountActiveConfigs returns the number of distinct configuration names among
// active rows.
func (r *RecipientRepository) CountActiveConfigs(ctx context.Context) (int, error) {
	active, err := r.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	names := make(map[string]struct{}, len(active))
	for _, rec := range active {
		names[rec.Name] = struct{}{}
	}
	return len(names), nil
}
