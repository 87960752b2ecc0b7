// Package sheets is the tabular-store adapter for the audit config workbook.
// Everything above this package works with typed records and row/column
// coordinates; everything below it is a hosted spreadsheet accessed by
// coordinates. Two backends implement the same pair of interfaces: a Google
// Sheets API backend for production and an in-memory backend for tests and
// local development.
package sheets

import (
	"context"
	"errors"
	"fmt"
)

// ErrTabNotFound is returned by Workbook.Tab when the named tab does not exist
// in the workbook. Read paths surface this as a "please sync" condition; write
// paths recover by calling EnsureTab instead.
var ErrTabNotFound = errors.New("tab not found in workbook")

// Workbook is a handle to one spreadsheet containing named tabs.
type Workbook interface {
	// Tab returns a handle to an existing tab or ErrTabNotFound.
	Tab(ctx context.Context, title string) (Tab, error)
	// EnsureTab returns a handle to the named tab, creating it empty if absent.
	EnsureTab(ctx context.Context, title string) (Tab, error)
}

// Tab is a handle to one tab. Rows and columns are 1-based throughout, matching
// how spreadsheet coordinates are conventionally written. Individual calls are
// atomic at the host platform's discretion; this layer adds no locking across
// calls, so read-then-write sequences can interleave between concurrent
// callers.
type Tab interface {
	// Title returns the tab name.
	Title() string

	// Values returns the tab's used range, row-major. Trailing blank cells and
	// rows may be absent, so callers must treat short rows as blank-padded.
	Values(ctx context.Context) ([][]string, error)

	// Update writes a block of values whose top-left cell lands at (row, col).
	Update(ctx context.Context, row, col int, values [][]string) error

	// Append adds one row after the last row containing any data.
	Append(ctx context.Context, row []string) error

	// Format applies cosmetic styling to a cell range. Callers treat failures
	// as non-fatal; styling must never block a functional write.
	Format(ctx context.Context, r Range, style Style) error

	// AutoResize fits column widths to content for columns startCol..endCol
	// inclusive. Best-effort, same contract as Format.
	AutoResize(ctx context.Context, startCol, endCol int) error
}

// Range is a rectangular cell region, 1-based and inclusive on all sides.
type Range struct {
	StartRow, StartCol int
	EndRow, EndCol     int
}

// HeaderRange covers row 1 across the first n columns.
func HeaderRange(n int) Range {
	return Range{StartRow: 1, StartCol: 1, EndRow: 1, EndCol: n}
}

func (r Range) String() string {
	return fmt.Sprintf("R%dC%d:R%dC%d", r.StartRow, r.StartCol, r.EndRow, r.EndCol)
}

// Style is the small cosmetic vocabulary the schema guard needs. Colors are
// "#rrggbb" hex strings; empty means leave unchanged.
type Style struct {
	Bold       bool
	Background string
	Foreground string
}

// Header and instructions styling used by the schema guard, matching the
// workbook's established look.
var (
	HeaderStyle       = Style{Bold: true, Background: "#4285f4", Foreground: "#ffffff"}
	InstructionsStyle = Style{Bold: true, Background: "#ff9900", Foreground: "#ffffff"}
)
