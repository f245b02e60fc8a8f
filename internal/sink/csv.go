package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"stock-parody/manager-go/internal/parody"
	"stock-parody/manager-go/internal/utils"
)

// Excel needs the BOM to detect UTF-8 Korean text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter rewrites a local CSV copy of the sheet on every run.
type CSVWriter struct {
	Path string
}

func (w CSVWriter) Name() string { return "csv" }

func (w CSVWriter) Write(ctx context.Context, records []parody.Record) error {
	if err := w.write(records); err != nil {
		return &PersistenceError{Sink: w.Name(), Err: err}
	}
	return nil
}

func (w CSVWriter) write(records []parody.Record) error {
	if err := utils.EnsureDir(filepath.Dir(w.Path)); err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	cw := csv.NewWriter(&buf)
	if err := cw.Write(parody.Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return os.WriteFile(w.Path, buf.Bytes(), 0o644)
}

func (w CSVWriter) Load(ctx context.Context) ([]parody.Record, error) {
	return ReadCSV(w.Path)
}

func ReadCSV(path string) ([]parody.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return recordsFromRows(rows), nil
}
