package sheets

import (
	"context"
	"reflect"
	"testing"
)

var (
	testHeader       = []string{"Config Name", "Requested By", "Request Time", "Status", "Notes"}
	testInstructions = [][]string{
		{"How to create a request:", "Use the helper. Do NOT add rows manually."},
		{"", ""},
		{"Security:", "Only admins should change Status values."},
	}
)

func guardedTab(t *testing.T, wb *MemoryWorkbook, title string) Tab {
	t.Helper()
	tab, err := wb.EnsureTab(context.Background(), title)
	if err != nil {
		t.Fatalf("EnsureTab: %v", err)
	}
	if err := EnsureSchema(context.Background(), tab, testHeader, testInstructions); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return tab
}

func TestEnsureSchemaFreshTab(t *testing.T) {
	wb := NewMemoryWorkbook()
	tab := guardedTab(t, wb, "Audit Requests")

	values, err := tab.Values(context.Background())
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if len(values) < 1+len(testInstructions) {
		t.Fatalf("guarded tab has %d rows", len(values))
	}

	for i, want := range testHeader {
		if values[0][i] != want {
			t.Errorf("header[%d] = %q, want %q", i, values[0][i], want)
		}
	}

	// INSTRUCTIONS lands one spacer column past the 5 data columns: column G (index 6).
	if got := values[0][6]; got != InstructionsHeader {
		t.Errorf("instructions header cell = %q", got)
	}
	if got := values[0][5]; got != "" {
		t.Errorf("spacer column not blank: %q", got)
	}
	if got := values[1][6]; got != testInstructions[0][0] {
		t.Errorf("first guidance cell = %q", got)
	}
	if got := values[1][7]; got != testInstructions[0][1] {
		t.Errorf("second guidance column = %q", got)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	wb := NewMemoryWorkbook()
	tab := guardedTab(t, wb, "Audit Requests")

	first, err := tab.Values(context.Background())
	if err != nil {
		t.Fatalf("Values: %v", err)
	}

	if err := EnsureSchema(context.Background(), tab, testHeader, testInstructions); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
	second, err := tab.Values(context.Background())
	if err != nil {
		t.Fatalf("Values: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second guard run changed content:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestEnsureSchemaRepairsHeaderOnly(t *testing.T) {
	wb := NewMemoryWorkbook()
	wb.Seed("Audit Requests", [][]string{
		{"Wrong", "Header"},
		{"PST01", "user@example.com", "2026-08-27T00:00:00Z", "PENDING", "note"},
	})
	tab := guardedTab(t, wb, "Audit Requests")

	values, _ := tab.Values(context.Background())
	if values[0][0] != "Config Name" {
		t.Errorf("header not repaired: %v", values[0])
	}
	// The existing data row is untouched.
	if values[1][0] != "PST01" || values[1][3] != "PENDING" {
		t.Errorf("data row disturbed: %v", values[1])
	}
}

func TestEnsureSchemaKeepsEditedInstructions(t *testing.T) {
	wb := NewMemoryWorkbook()
	wb.Seed("Audit Requests", [][]string{
		{"Config Name", "Requested By", "Request Time", "Status", "Notes", "", "INSTRUCTIONS"},
		{"", "", "", "", "", "", "Admin-edited guidance", "still here"},
	})
	tab, _ := wb.Tab(context.Background(), "Audit Requests")

	if err := EnsureSchema(context.Background(), tab, testHeader, testInstructions); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	values, _ := tab.Values(context.Background())
	if values[1][6] != "Admin-edited guidance" {
		t.Errorf("edited guidance overwritten: %q", values[1][6])
	}
	if len(values) > 1+len(testInstructions) {
		// No duplicate block appended below the edited one.
		for r := 2; r < len(values); r++ {
			if len(values[r]) > 6 && values[r][6] == testInstructions[0][0] {
				t.Errorf("default guidance seeded despite existing content (row %d)", r+1)
			}
		}
	}
}

func TestEnsureSchemaFindsExistingInstructionsColumn(t *testing.T) {
	// INSTRUCTIONS already present further right than the guard would place it;
	// the guard must reuse it rather than add a second title.
	wb := NewMemoryWorkbook()
	wb.Seed("Audit Requests", [][]string{
		{"Config Name", "Requested By", "Request Time", "Status", "Notes", "", "", "", "instructions"},
	})
	tab, _ := wb.Tab(context.Background(), "Audit Requests")

	if err := EnsureSchema(context.Background(), tab, testHeader, testInstructions); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	values, _ := tab.Values(context.Background())
	count := 0
	for _, cell := range values[0] {
		if cell == InstructionsHeader || cell == "instructions" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("row 1 holds %d instructions titles: %v", count, values[0])
	}
}
