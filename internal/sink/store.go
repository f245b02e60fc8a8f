package sink

import (
	"context"

	"stock-parody/manager-go/internal/parody"
)

// RecordStore is implemented by *db.Store.
type RecordStore interface {
	ReplaceRecords(ctx context.Context, runID string, records []parody.Record) error
	ListRecords(ctx context.Context, runID string) ([]parody.Record, error)
}

type StoreWriter struct {
	Store RecordStore
	RunID string
}

func (w StoreWriter) Name() string { return "store" }

func (w StoreWriter) Write(ctx context.Context, records []parody.Record) error {
	if err := w.Store.ReplaceRecords(ctx, w.RunID, records); err != nil {
		return &PersistenceError{Sink: w.Name(), Err: err}
	}
	return nil
}

func (w StoreWriter) Load(ctx context.Context) ([]parody.Record, error) {
	return w.Store.ListRecords(ctx, w.RunID)
}
