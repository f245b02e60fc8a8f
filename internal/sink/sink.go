// Package sink writes a run's parody records to the sheet, local files and the store.
package sink

import (
	"context"
	"errors"
	"fmt"

	"stock-parody/manager-go/internal/parody"
	"stock-parody/manager-go/internal/utils"
)

type Writer interface {
	Name() string
	Write(ctx context.Context, records []parody.Record) error
}

// PersistenceError reports a write that failed or whose read-back did not match.
type PersistenceError struct {
	Sink     string
	Expected int
	Got      int
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: persistence failure: %v", e.Sink, e.Err)
	}
	return fmt.Sprintf("%s: persistence failure: expected %d rows, found %d", e.Sink, e.Expected, e.Got)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Multi writes to each writer in order. A PersistenceError is logged and the next
// writer still runs, and Write then fails only when no writer succeeded. Any other
// error stops the fan-out. The built-in writers report every failure as a
// PersistenceError.
type Multi []Writer

func (m Multi) Name() string { return "multi" }

func (m Multi) Write(ctx context.Context, records []parody.Record) error {
	logger := utils.Stage("sink")
	var errs []error
	written := 0
	for _, w := range m {
		err := w.Write(ctx, records)
		if err == nil {
			logger.Info("records written", "sink", w.Name(), "records", len(records))
			written++
			continue
		}
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			return fmt.Errorf("%s: %w", w.Name(), err)
		}
		logger.Error("sink failed, continuing", "sink", w.Name(), "err", err)
		errs = append(errs, err)
	}
	if written == 0 && len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Source yields previously written records, for stages that run after collection.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]parody.Record, error)
}

// FirstAvailable returns the records of the first source that has any.
func FirstAvailable(ctx context.Context, sources ...Source) ([]parody.Record, string, error) {
	var errs []error
	for _, src := range sources {
		records, err := src.Load(ctx)
		if err != nil {
			utils.Warn("record source unavailable", "source", src.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		if len(records) > 0 {
			return records, src.Name(), nil
		}
	}
	if len(errs) > 0 {
		return nil, "", errors.Join(errs...)
	}
	return nil, "", errors.New("no records found in any source")
}
