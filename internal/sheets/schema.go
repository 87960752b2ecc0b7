package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// InstructionsHeader is the title cell of the auxiliary guidance block placed
// to the right of a tab's data columns, separated by one blank spacer column.
const InstructionsHeader = "INSTRUCTIONS"

// EnsureSchema makes a tab ready for reads and appends without ever touching
// existing data rows:
//
//   - Row 1 across the header's columns is set to the expected header iff the
//     tab is empty or any header cell mismatches after trimming.
//   - An INSTRUCTIONS title cell is placed two columns past the last non-empty
//     header cell (one blank spacer column) when no such cell exists in row 1.
//   - The two-column guidance block below the INSTRUCTIONS title is seeded with
//     the supplied rows only when that region is entirely empty, so repeated
//     calls never duplicate or clobber guidance that admins have edited.
//
// Styling and column auto-resize are cosmetic: their failures are logged and
// swallowed so they cannot block the functional writes. Repeated invocation on
// an already-correct tab is a no-op apart from that re-styling. Pass nil
// instructions to skip the guidance block entirely.
func EnsureSchema(ctx context.Context, tab Tab, header []string, instructions [][]string) error {
	values, err := tab.Values(ctx)
	if err != nil {
		return fmt.Errorf("read %q for schema check: %w", tab.Title(), err)
	}

	var headerRow []string
	if len(values) > 0 {
		headerRow = values[0]
	}

	if headerMismatch(headerRow, header) {
		if err := tab.Update(ctx, 1, 1, [][]string{header}); err != nil {
			return fmt.Errorf("write header on %q: %w", tab.Title(), err)
		}
		// Re-read so instructions placement sees both the repaired header and
		// any pre-existing content past it (a surviving INSTRUCTIONS title).
		values, err = tab.Values(ctx)
		if err != nil {
			return fmt.Errorf("re-read %q after header write: %w", tab.Title(), err)
		}
		headerRow = values[0]
	}
	styleBestEffort(ctx, tab, HeaderRange(len(header)), HeaderStyle)

	if instructions != nil {
		if err := ensureInstructions(ctx, tab, headerRow, values, instructions); err != nil {
			return err
		}
	}

	if err := tab.AutoResize(ctx, 1, len(header)); err != nil {
		slog.Debug("auto-resize skipped", "tab", tab.Title(), "error", err)
	}
	return nil
}

// ensureInstructions places the INSTRUCTIONS title and, when the block below it
// is untouched, the guidance rows.
func ensureInstructions(ctx context.Context, tab Tab, headerRow []string, values [][]string, instructions [][]string) error {
	instrCol := 0 // 1-based; 0 = not found
	for i, cell := range headerRow {
		if strings.EqualFold(strings.TrimSpace(cell), InstructionsHeader) {
			instrCol = i + 1
			break
		}
	}

	if instrCol == 0 {
		lastHeaderCol := 0
		for i := len(headerRow) - 1; i >= 0; i-- {
			if strings.TrimSpace(headerRow[i]) != "" {
				lastHeaderCol = i + 1
				break
			}
		}
		// One blank spacer column between the data header and the block.
		instrCol = lastHeaderCol + 2
		if err := tab.Update(ctx, 1, instrCol, [][]string{{InstructionsHeader}}); err != nil {
			return fmt.Errorf("write instructions header on %q: %w", tab.Title(), err)
		}
	}
	styleBestEffort(ctx, tab, Range{StartRow: 1, StartCol: instrCol, EndRow: 1, EndCol: instrCol}, InstructionsStyle)

	if regionEmpty(values, instrCol) {
		if err := tab.Update(ctx, 2, instrCol, instructions); err != nil {
			return fmt.Errorf("seed instructions on %q: %w", tab.Title(), err)
		}
	}
	return nil
}

// regionEmpty reports whether the two instructions columns hold nothing below
// row 1. values is the used range as returned by Tab.Values; instrCol is
// 1-based.
func regionEmpty(values [][]string, instrCol int) bool {
	for r := 1; r < len(values); r++ {
		for c := instrCol - 1; c <= instrCol && c < len(values[r]); c++ {
			if strings.TrimSpace(values[r][c]) != "" {
				return false
			}
		}
	}
	return true
}

// headerMismatch reports whether the current row 1 differs from the expected
// header in any of the expected columns, after trimming. A row 1 that carries
// extra cells past the expected width (the INSTRUCTIONS title) is not a
// mismatch.
func headerMismatch(current, expected []string) bool {
	if len(current) == 0 {
		return true
	}
	for i, want := range expected {
		got := ""
		if i < len(current) {
			got = current[i]
		}
		if strings.TrimSpace(got) != want {
			return true
		}
	}
	return false
}

func styleBestEffort(ctx context.Context, tab Tab, r Range, style Style) {
	if err := tab.Format(ctx, r, style); err != nil {
		slog.Debug("styling skipped", "tab", tab.Title(), "range", r.String(), "error", err)
	}
}
