package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"stock-parody/manager-go/internal/db"
	"stock-parody/manager-go/internal/llm"
	"stock-parody/manager-go/internal/news"
	"stock-parody/manager-go/internal/parody"
	"stock-parody/manager-go/internal/queue"
	"stock-parody/manager-go/internal/sink"
	"stock-parody/manager-go/internal/utils"
)

var ErrNothingAccepted = errors.New("no parody record was accepted")

// CollectJob fetches the news, ranks it, generates parodies and writes them out.
type CollectJob struct {
	BaseJob
	// Client, Fetcher and Writer replace the configured defaults when set.
	Client  llm.Client
	Fetcher *news.Fetcher
	Writer  sink.Writer
}

func NewCollectJob() CollectJob {
	return CollectJob{
		BaseJob: BaseJob{QueueOutput: queue.Collected},
	}
}

func (j CollectJob) Run(ctx context.Context, jctx JobContext, opts JobOptions) error {
	logger := utils.Stage("collect")
	cfg := jctx.Config
	if err := cfg.ValidateCollect(); err != nil {
		return err
	}

	fetcher := j.fetcher(jctx)
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	date := fetcher.Today()
	logger.Info("collect start", "run_id", runID, "date", date, "feeds", len(cfg.RSSURLs))

	if jctx.Store != nil {
		if err := jctx.Store.CreateRun(ctx, db.Run{ID: runID, RunDate: date, Hostname: cfg.Hostname, Status: db.StatusCollecting}); err != nil {
			return fmt.Errorf("create run: %w", err)
		}
	}
	// Sinks are built before the first model call.
	var (
		writer sink.Writer
		err    error
	)
	if !opts.DryRun {
		if writer, err = j.writer(ctx, jctx, runID); err != nil {
			setStatus(ctx, jctx, runID, db.StatusFailed)
			return err
		}
	}
	result, err := j.collect(ctx, jctx, fetcher, date)
	if err != nil {
		setStatus(ctx, jctx, runID, db.StatusFailed)
		return err
	}

	if opts.DryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		logger.Info("dry run, skipping sinks", "summary", result.Summary())
		return enc.Encode(result.Records)
	}

	if err := writer.Write(ctx, result.Records); err != nil {
		setStatus(ctx, jctx, runID, db.StatusFailed)
		return fmt.Errorf("write records: %w", err)
	}

	if jctx.Store != nil {
		if err := jctx.Store.UpdateRunCounts(ctx, runID, result.Accepted, result.Defaulted, result.Skipped); err != nil {
			logger.Warn("run counts update failed", "err", err)
		}
	}
	setStatus(ctx, jctx, runID, db.StatusCollected)
	logger.Info("collect done", "run_id", runID, "records", len(result.Records), "accepted", result.Accepted, "defaulted", result.Defaulted, "skipped", result.Skipped)
	return j.handoff(jctx, runID)
}

func (j CollectJob) collect(ctx context.Context, jctx JobContext, fetcher *news.Fetcher, date string) (parody.Result, error) {
	cfg := jctx.Config
	items, err := fetcher.Fetch(ctx, cfg.RSSURLs)
	if err != nil {
		return parody.Result{}, err
	}

	client := j.Client
	if client == nil {
		c, err := llm.New(ctx, cfg)
		if err != nil {
			return parody.Result{}, err
		}
		client = c
	}

	ranker := &parody.Ranker{
		Client:      client,
		Model:       cfg.RankModel,
		Temperature: cfg.RankTemperature,
		MaxTokens:   cfg.RankMaxTokens,
		Pick:        cfg.TopN,
	}
	ranked := ranker.Rank(ctx, items)
	if cfg.TopN > 0 && len(ranked) > cfg.TopN {
		ranked = ranked[:cfg.TopN]
	}

	gen := &parody.Generator{
		Client:      client,
		Model:       cfg.LLMModel,
		Temperature: cfg.GenerateTemperature,
		MaxTokens:   cfg.GenerateMaxTokens,
		Attempts:    cfg.GenerationAttempts,
		Date:        date,
		Disclaimer:  cfg.Disclaimer,
	}
	result, err := gen.Generate(ctx, ranked)
	if err != nil {
		return result, fmt.Errorf("generate: %w", err)
	}
	utils.Stage("collect").Info("generation finished", "summary", result.Summary())
	if result.Accepted == 0 {
		return result, ErrNothingAccepted
	}
	return result, nil
}

func (j CollectJob) fetcher(jctx JobContext) *news.Fetcher {
	if j.Fetcher != nil {
		return j.Fetcher
	}
	cfg := jctx.Config
	f := news.NewFetcher(location(cfg))
	f.Days = cfg.NewsDays
	f.MinItems = cfg.NewsMinItems
	f.Threshold = cfg.SimilarityThreshold
	return f
}

// writer assembles the sinks in order: sheet, store, csv, feed.
func (j CollectJob) writer(ctx context.Context, jctx JobContext, runID string) (sink.Writer, error) {
	if j.Writer != nil {
		return j.Writer, nil
	}
	cfg := jctx.Config
	var writers sink.Multi
	if cfg.SheetID != "" {
		creds, err := sink.LoadCredentials(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		sheet, err := sink.NewGoogleSheet(ctx, creds, cfg.SheetID, cfg.SheetTab)
		if err != nil {
			return nil, err
		}
		writers = append(writers, sink.SheetWriter{Table: sheet})
	}
	if jctx.Store != nil {
		writers = append(writers, sink.StoreWriter{Store: jctx.Store, RunID: runID})
	}
	if cfg.CSVPath != "" {
		writers = append(writers, sink.CSVWriter{Path: cfg.CSVPath})
	}
	if cfg.FeedPath != "" {
		writers = append(writers, sink.FeedWriter{Path: cfg.FeedPath, Link: cfg.FeedLink, Location: location(cfg), Now: time.Now})
	}
	if len(writers) == 0 {
		return nil, errors.New("no output configured")
	}
	return writers, nil
}
