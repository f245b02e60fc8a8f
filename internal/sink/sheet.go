package sink

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"stock-parody/manager-go/internal/parody"
)

// Table is the minimal spreadsheet surface the sheet writer needs.
type Table interface {
	Clear(ctx context.Context) error
	Append(ctx context.Context, rows [][]string) error
	Rows(ctx context.Context) ([][]string, error)
}

// SheetWriter replaces the table with a header row plus one row per record, then
// reads the table back to confirm the row count.
type SheetWriter struct {
	Table Table
}

func (w SheetWriter) Name() string { return "sheet" }

func (w SheetWriter) Write(ctx context.Context, records []parody.Record) error {
	if err := w.Table.Clear(ctx); err != nil {
		return &PersistenceError{Sink: w.Name(), Err: fmt.Errorf("clear: %w", err)}
	}
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, parody.Header)
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	if err := w.Table.Append(ctx, rows); err != nil {
		return &PersistenceError{Sink: w.Name(), Err: fmt.Errorf("append: %w", err)}
	}
	got, err := w.Table.Rows(ctx)
	if err != nil {
		return &PersistenceError{Sink: w.Name(), Err: fmt.Errorf("read back: %w", err)}
	}
	if len(got) != len(rows) {
		return &PersistenceError{Sink: w.Name(), Expected: len(rows), Got: len(got)}
	}
	return nil
}

// TableSource reads records back from a Table whose first row is the header.
type TableSource struct {
	Label string
	Table Table
}

func (s TableSource) Name() string { return s.Label }

func (s TableSource) Load(ctx context.Context) ([]parody.Record, error) {
	rows, err := s.Table.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows), nil
}

func recordsFromRows(rows [][]string) []parody.Record {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	out := make([]parody.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, parody.RecordFromRow(header, row))
	}
	return out
}

type MemoryTable struct {
	Data [][]string
}

func (t *MemoryTable) Clear(ctx context.Context) error {
	t.Data = nil
	return nil
}

func (t *MemoryTable) Append(ctx context.Context, rows [][]string) error {
	for _, row := range rows {
		t.Data = append(t.Data, append([]string(nil), row...))
	}
	return nil
}

func (t *MemoryTable) Rows(ctx context.Context) ([][]string, error) {
	out := make([][]string, len(t.Data))
	copy(out, t.Data)
	return out, nil
}

// GoogleSheet is one tab of a Google spreadsheet, addressed with a service account.
type GoogleSheet struct {
	svc           *sheets.Service
	SpreadsheetID string
	Tab           string
}

// LoadCredentials prefers inline JSON and falls back to reading the file.
func LoadCredentials(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	if path == "" {
		return nil, fmt.Errorf("no google credentials configured")
	}
	return os.ReadFile(path)
}

func NewGoogleSheet(ctx context.Context, credentials []byte, spreadsheetID, tab string) (*GoogleSheet, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &GoogleSheet{svc: svc, SpreadsheetID: spreadsheetID, Tab: tab}, nil
}

func (g *GoogleSheet) tabRange() string {
	return "'" + g.Tab + "'"
}

func (g *GoogleSheet) Clear(ctx context.Context) error {
	_, err := g.svc.Spreadsheets.Values.Clear(g.SpreadsheetID, g.tabRange(), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *GoogleSheet) Append(ctx context.Context, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	_, err := g.svc.Spreadsheets.Values.Append(g.SpreadsheetID, g.tabRange()+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (g *GoogleSheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.SpreadsheetID, g.tabRange()).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprint(cell)
		}
		out = append(out, cells)
	}
	return out, nil
}
