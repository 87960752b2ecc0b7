package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleWorkbook is the production Workbook backend, talking to one spreadsheet
// through the Google Sheets API with service-account credentials.
type GoogleWorkbook struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewGoogleWorkbook builds a Sheets API client for the given spreadsheet.
// Credentials resolve in order: explicit service-account JSON, a credentials
// file path, then Application Default Credentials.
func NewGoogleWorkbook(ctx context.Context, spreadsheetID, credentialsFile, credentialsJSON string) (*GoogleWorkbook, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}

	var opts []option.ClientOption
	switch {
	case credentialsJSON != "":
		jwtCfg, err := google.JWTConfigFromJSON([]byte(credentialsJSON), sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("sheets: parse service account JSON: %w", err)
		}
		opts = append(opts, option.WithHTTPClient(jwtCfg.Client(ctx)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile), option.WithScopes(sheets.SpreadsheetsScope))
	default:
		opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &GoogleWorkbook{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Tab implements Workbook.
func (w *GoogleWorkbook) Tab(ctx context.Context, title string) (Tab, error) {
	sheetID, err := w.sheetID(ctx, title)
	if err != nil {
		return nil, err
	}
	return &googleTab{wb: w, title: title, sheetID: sheetID}, nil
}

// EnsureTab implements Workbook.
func (w *GoogleWorkbook) EnsureTab(ctx context.Context, title string) (Tab, error) {
	tab, err := w.Tab(ctx, title)
	if err == nil {
		return tab, nil
	}
	if err != ErrTabNotFound {
		return nil, err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	resp, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: add tab %q: %w", title, err)
	}
	added := resp.Replies[0].AddSheet.Properties
	return &googleTab{wb: w, title: title, sheetID: added.SheetId}, nil
}

// sheetID resolves a tab title to its numeric sheet id, needed by the
// formatting and resize requests that address ranges by grid coordinates.
func (w *GoogleWorkbook) sheetID(ctx context.Context, title string) (int64, error) {
	meta, err := w.svc.Spreadsheets.Get(w.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: read workbook metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, ErrTabNotFound
}

type googleTab struct {
	wb      *GoogleWorkbook
	title   string
	sheetID int64
}

func (t *googleTab) Title() string { return t.title }

// Values implements Tab.
func (t *googleTab) Values(ctx context.Context) ([][]string, error) {
	resp, err := t.wb.svc.Spreadsheets.Values.Get(t.wb.spreadsheetID, quoteTitle(t.title)).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %q: %w", t.title, err)
	}

	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, cellString(cell))
		}
		out = append(out, cells)
	}
	return out, nil
}

// Update implements Tab. The anchor cell is enough for the API; the value block
// extends right and down from it.
func (t *googleTab) Update(ctx context.Context, row, col int, values [][]string) error {
	anchor := fmt.Sprintf("%s!%s%d", quoteTitle(t.title), columnName(col), row)
	_, err := t.wb.svc.Spreadsheets.Values.Update(t.wb.spreadsheetID, anchor, valueRange(values)).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: update %q at %s: %w", t.title, anchor, err)
	}
	return nil
}

// Append implements Tab.
func (t *googleTab) Append(ctx context.Context, row []string) error {
	rng := fmt.Sprintf("%s!A1", quoteTitle(t.title))
	_, err := t.wb.svc.Spreadsheets.Values.Append(t.wb.spreadsheetID, rng, valueRange([][]string{row})).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: append to %q: %w", t.title, err)
	}
	return nil
}

// Format implements Tab.
func (t *googleTab) Format(ctx context.Context, r Range, style Style) error {
	format := &sheets.CellFormat{
		TextFormat: &sheets.TextFormat{Bold: style.Bold},
	}
	fields := []string{"userEnteredFormat.textFormat.bold"}
	if style.Foreground != "" {
		format.TextFormat.ForegroundColor = hexColor(style.Foreground)
		fields = append(fields, "userEnteredFormat.textFormat.foregroundColor")
	}
	if style.Background != "" {
		format.BackgroundColor = hexColor(style.Background)
		fields = append(fields, "userEnteredFormat.backgroundColor")
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          t.sheetID,
					StartRowIndex:    int64(r.StartRow - 1),
					EndRowIndex:      int64(r.EndRow),
					StartColumnIndex: int64(r.StartCol - 1),
					EndColumnIndex:   int64(r.EndCol),
				},
				Cell:   &sheets.CellData{UserEnteredFormat: format},
				Fields: strings.Join(fields, ","),
			},
		}},
	}
	if _, err := t.wb.svc.Spreadsheets.BatchUpdate(t.wb.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: format %q %s: %w", t.title, r.String(), err)
	}
	return nil
}

// AutoResize implements Tab.
func (t *googleTab) AutoResize(ctx context.Context, startCol, endCol int) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    t.sheetID,
					Dimension:  "COLUMNS",
					StartIndex: int64(startCol - 1),
					EndIndex:   int64(endCol),
				},
			},
		}},
	}
	if _, err := t.wb.svc.Spreadsheets.BatchUpdate(t.wb.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets: auto-resize %q: %w", t.title, err)
	}
	return nil
}

func valueRange(values [][]string) *sheets.ValueRange {
	rows := make([][]interface{}, len(values))
	for i, row := range values {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		rows[i] = cells
	}
	return &sheets.ValueRange{Values: rows}
}

func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// columnName converts a 1-based column number to its A1 letter form.
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

// quoteTitle wraps a tab title for A1 notation; the workbook's tab names
// contain spaces, which A1 notation requires to be single-quoted.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// hexColor parses "#rrggbb" into the API's float color struct. Malformed input
// yields black, which is harmless for cosmetic styling.
func hexColor(hex string) *sheets.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return &sheets.Color{}
	}
	parse := func(s string) float64 {
		n, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return 0
		}
		return float64(n) / 255.0
	}
	return &sheets.Color{
		Red:   parse(hex[0:2]),
		Green: parse(hex[2:4]),
		Blue:  parse(hex[4:6]),
	}
}
