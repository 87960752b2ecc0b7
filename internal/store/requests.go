// requests.go implements RequestRepository, the writer for the Audit Requests
// tab. Intake only ever touches columns A through E; the INSTRUCTIONS block and
// anything else to the right belongs to the admins and is invisible to the
// write path.
package store

import (
	"context"
	"fmt"

	"github.com/cm360-audit/config-helper/internal/records"
	"github.com/cm360-audit/config-helper/internal/sheets"
)

// RequestsInstructions is the two-column guidance block seeded next to the
// request log header when the tab is first created. Admins may edit it freely
// afterwards; it is never rewritten once any cell in the region is non-empty.
var RequestsInstructions = [][]string{
	{"How to create a request:", "Use CM360 Config Helper → Run Config Audit. The system adds a row automatically. Do NOT add rows manually."},
	{"", ""},
	{"When to use this tab:", "This is a log/queue of requests—external users should not edit Status directly."},
	{"", ""},
	{"Troubleshooting:", "If requests stay PENDING, confirm access and ask an admin to check logs."},
	{"Security:", "Only admins should change Status values."},
	{"", ""},
	{"Usage:", "Leave entries to the system unless directed by an admin."},
}

// RequestRepository handles rows of the Audit Requests tab.
type RequestRepository struct {
	wb sheets.Workbook
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(wb sheets.Workbook) *RequestRepository {
	return &RequestRepository{wb: wb}
}

// Create writes one request into the first row whose A–E region is entirely
// blank, creating the tab with its header and guidance block first if needed.
// Scanning only A–E means a row that carries instructions text in the side
// block but no request data is still a usable slot, and admin content past
// column E is never overwritten.
func (r *RequestRepository) Create(ctx context.Context, req records.AuditRequest) error {
	tab, err := r.wb.EnsureTab(ctx, records.RequestsTab)
	if err != nil {
		return fmt.Errorf("failed to open requests tab: %w", err)
	}
	if err := sheets.EnsureSchema(ctx, tab, records.RequestsHeader, RequestsInstructions); err != nil {
		return fmt.Errorf("failed to prepare requests tab: %w", err)
	}

	values, err := tab.Values(ctx)
	if err != nil {
		return fmt.Errorf("failed to read requests tab: %w", err)
	}

	writeRow := firstBlankRequestRow(values)
	if err := tab.Update(ctx, writeRow, 1, [][]string{req.Row()}); err != nil {
		return fmt.Errorf("failed to write request row: %w", err)
	}
	return nil
}

// List returns every decodable request in the tracked A–E region, skipping the
// header and blank slots. Rows with a malformed request time are skipped
// rather than failing the whole read; an audit log with one bad hand-edited
// row should not take the listing down.
func (r *RequestRepository) List(ctx context.Context) ([]records.AuditRequest, error) {
	tab, err := r.wb.Tab(ctx, records.RequestsTab)
	if err != nil {
		return nil, fmt.Errorf("requests tab: %w", err)
	}
	values, err := tab.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read requests tab: %w", err)
	}

	var out []records.AuditRequest
	for i := 1; i < len(values); i++ {
		if records.RowBlank(values[i], records.RequestsColCount) {
			continue
		}
		req, err := records.RequestFromRow(values[i])
		if err != nil {
			continue
		}
		out = append(out, req)
	}
	return out, nil
}

// firstBlankRequestRow returns the 1-based row of the first blank A–E slot
// below the header, or the row after the last A–E data row when no gap exists.
func firstBlankRequestRow(values [][]string) int {
	writeRow := -1
	lastDataRow := 1 // header
	for i := 1; i < len(values); i++ {
		if records.RowBlank(values[i], records.RequestsColCount) {
			if writeRow == -1 {
				writeRow = i + 1
			}
		} else {
			lastDataRow = i + 1
		}
	}
	if writeRow == -1 {
		writeRow = lastDataRow + 1
	}
	return writeRow
}
