package jobs

import (
	"context"
	"fmt"

	"stock-parody/manager-go/internal/card"
	"stock-parody/manager-go/internal/db"
	"stock-parody/manager-go/internal/queue"
	"stock-parody/manager-go/internal/sink"
	"stock-parody/manager-go/internal/utils"
)

type RenderCardsJob struct {
	BaseJob
	// Sources overrides where records are read from.
	Sources []sink.Source
}

func NewRenderCardsJob() RenderCardsJob {
	return RenderCardsJob{
		BaseJob: BaseJob{
			QueueInput:  queue.Collected,
			QueueOutput: queue.Cards,
		},
	}
}

func (j RenderCardsJob) Run(ctx context.Context, jctx JobContext, opts JobOptions) error {
	if opts.Queue {
		return j.RunQueue(ctx, jctx, opts, func(ctx context.Context, runID string, hostname string) error {
			return j.process(ctx, jctx, runID)
		})
	}
	return j.process(ctx, jctx, resolveRunID(ctx, jctx, opts.RunID))
}

func (j RenderCardsJob) process(ctx context.Context, jctx JobContext, runID string) error {
	logger := utils.Stage("cards")
	cfg := jctx.Config
	sources, err := j.sources(ctx, jctx, runID)
	if err != nil {
		return err
	}
	records, from, err := sink.FirstAvailable(ctx, sources...)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	logger.Info("records loaded", "run_id", runID, "source", from, "records", len(records))

	renderer := card.NewRenderer(cfg.CardTemplate, cfg.CardFontRegular, cfg.CardFontBold, card.DefaultLayout())
	paths, err := renderer.RenderAll(records, cardDir(cfg))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		setStatus(ctx, jctx, runID, db.StatusFailed)
		return fmt.Errorf("no cards rendered out of %d records", len(records))
	}
	setStatus(ctx, jctx, runID, db.StatusCards)
	mergeMeta(ctx, jctx, runID, map[string]any{"cards": len(paths), "card_source": from})
	logger.Info("cards done", "run_id", runID, "cards", len(paths))
	return j.handoff(jctx, runID)
}

// sources orders the record sources: store for the run, then sheet, then CSV.
func (j RenderCardsJob) sources(ctx context.Context, jctx JobContext, runID string) ([]sink.Source, error) {
	if len(j.Sources) > 0 {
		return j.Sources, nil
	}
	cfg := jctx.Config
	var out []sink.Source
	if jctx.Store != nil && runID != "" {
		out = append(out, sink.StoreWriter{Store: jctx.Store, RunID: runID})
	}
	if cfg.SheetID != "" {
		creds, err := sink.LoadCredentials(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			utils.Warn("sheet credentials unavailable", "err", err)
		} else if sheet, err := sink.NewGoogleSheet(ctx, creds, cfg.SheetID, cfg.SheetTab); err != nil {
			utils.Warn("sheet client unavailable", "err", err)
		} else {
			out = append(out, sink.TableSource{Label: "sheet", Table: sheet})
		}
	}
	if cfg.CSVPath != "" {
		out = append(out, sink.CSVWriter{Path: cfg.CSVPath})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no record source configured")
	}
	return out, nil
}
