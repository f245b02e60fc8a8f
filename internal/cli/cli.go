package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stock-parody/manager-go/internal/config"
	"stock-parody/manager-go/internal/db"
	"stock-parody/manager-go/internal/jobs"
	"stock-parody/manager-go/internal/news"
	"stock-parody/manager-go/internal/queue"
	"stock-parody/manager-go/internal/utils"
)

func Run(args []string) int {
	// Support a global --verbose flag anywhere in the argv (before or after the command).
	// This is helpful because the stdlib flag parser stops at the first non-flag argument.
	args, globalVerbose := extractGlobalVerbose(args)
	utils.ConfigureLogging(globalVerbose)

	if len(args) < 2 {
		printUsage()
		return 1
	}
	if args[1] == "-h" || args[1] == "--help" || args[1] == "help" {
		printUsage()
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}
	utils.Logf("manager: config loaded env=%s hostname=%s provider=%s", cfg.AppEnv, cfg.Hostname, cfg.LLMProvider)

	cmd := args[1]
	cmdArgs := args[2:]
	utils.Logf("manager: cmd=%s args=%v", cmd, cmdArgs)

	// Commands that do not need the shared job context.
	switch cmd {
	case "migrate":
		return exitCode(runMigrate(ctx, cfg, cmdArgs))
	case "Rss:Preview":
		return exitCode(runRssPreview(ctx, cfg, cmdArgs))
	}

	jctx := jobs.JobContext{Config: cfg}
	if cfg.DBEnabled() {
		store, err := db.NewStore(ctx, cfg.DBConnString())
		if err != nil {
			fmt.Fprintf(os.Stderr, "db error: %v\n", err)
			return 1
		}
		defer store.Close()
		jctx.Store = store
		utils.Logf("manager: db connected")
	}
	if cfg.QueueEnabled() {
		queueClient, err := queue.New(cfg.RabbitMQURL())
		if err != nil {
			fmt.Fprintf(os.Stderr, "queue error: %v\n", err)
			return 1
		}
		defer queueClient.Close()
		jctx.Queue = queueClient
		utils.Logf("manager: queue connected")
	}

	var runErr error
	switch cmd {
	case "job:Collect":
		runErr = runCollect(ctx, jctx, cmdArgs)
	case "job:RenderCards":
		runErr = runStage(ctx, jctx, "job:RenderCards", jobs.NewRenderCardsJob(), cmdArgs, false)
	case "job:AssembleVideo":
		runErr = runStage(ctx, jctx, "job:AssembleVideo", jobs.NewAssembleVideoJob(), cmdArgs, false)
	case "job:UploadToYoutube":
		runErr = runStage(ctx, jctx, "job:UploadToYoutube", jobs.NewUploadYouTubeJob(), cmdArgs, true)
	case "job:UploadToDrive":
		runErr = runStage(ctx, jctx, "job:UploadToDrive", jobs.NewUploadDriveJob(), cmdArgs, false)
	case "job:Pipeline":
		runErr = runPipeline(ctx, jctx, cmdArgs)
	case "Runs:Show":
		runErr = runRunsShow(ctx, jctx, cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		return 1
	}
	return exitCode(runErr)
}

func exitCode(err error) int {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func extractGlobalVerbose(args []string) ([]string, bool) {
	if len(args) == 0 {
		return args, false
	}
	verbose := false
	out := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == "--verbose" || arg == "-verbose":
			verbose = true
			continue
		case strings.HasPrefix(arg, "--verbose="):
			raw := strings.TrimPrefix(arg, "--verbose=")
			if parsed, err := strconv.ParseBool(raw); err == nil {
				verbose = parsed
			}
			continue
		case strings.HasPrefix(arg, "-verbose="):
			raw := strings.TrimPrefix(arg, "-verbose=")
			if parsed, err := strconv.ParseBool(raw); err == nil {
				verbose = parsed
			}
			continue
		default:
			out = append(out, arg)
		}
	}
	return out, verbose
}

// parseRunID takes the optional positional run id.
func parseRunID(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	if len(args) > 1 {
		return "", fmt.Errorf("unexpected arguments: %v", args[1:])
	}
	return strings.TrimSpace(args[0]), nil
}

func runCollect(ctx context.Context, jctx jobs.JobContext, args []string) error {
	fs := flag.NewFlagSet("job:Collect", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "Print the records instead of writing them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	runID, err := parseRunID(fs.Args())
	if err != nil {
		return err
	}
	opts := jobs.JobOptions{RunID: runID, DryRun: *dryRun}
	logJobStart("job:Collect", opts)

	job := jobs.NewCollectJob()
	return job.Run(ctx, jctx, opts)
}

func runStage(ctx context.Context, jctx jobs.JobContext, name string, job jobs.Runner, args []string, withInfo bool) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	sleep := fs.Int("sleep", 30, "Sleep time in seconds")
	queueFlag := fs.Bool("queue", false, "Process queue messages")
	once := fs.Bool("once", false, "With --queue, handle at most one message and exit")
	var info *bool
	if withInfo {
		info = fs.Bool("info", false, "Just show info, do not upload")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	runID, err := parseRunID(fs.Args())
	if err != nil {
		return err
	}
	opts := jobs.JobOptions{RunID: runID, Sleep: *sleep, Queue: *queueFlag, QueueOnce: *once}
	if info != nil {
		opts.Info = *info
	}
	logJobStart(name, opts)
	return job.Run(ctx, jctx, opts)
}

func runPipeline(ctx context.Context, jctx jobs.JobContext, args []string) error {
	fs := flag.NewFlagSet("job:Pipeline", flag.ContinueOnError)
	upload := fs.Bool("upload", false, "Upload to YouTube (and Drive when a webhook is configured)")
	dryRun := fs.Bool("dry-run", false, "Stop after collecting and print the records")
	if err := fs.Parse(args); err != nil {
		return err
	}
	runID, err := parseRunID(fs.Args())
	if err != nil {
		return err
	}
	opts := jobs.JobOptions{RunID: runID, Upload: *upload, DryRun: *dryRun}
	logJobStart("job:Pipeline", opts)

	job := jobs.NewPipelineJob(*upload, jctx.Config.WebhookURL != "")
	return job.Run(ctx, jctx, opts)
}

func runRssPreview(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("Rss:Preview", flag.ContinueOnError)
	days := fs.Int("days", cfg.NewsDays, "Keep items published within this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	urls := fs.Args()
	if len(urls) == 0 {
		urls = cfg.RSSURLs
	}
	if len(urls) == 0 {
		return errors.New("no feed url given and none configured")
	}

	fetcher := news.NewFetcher(previewLocation(cfg))
	fetcher.Days = *days
	fetcher.MinItems = cfg.NewsMinItems
	fetcher.Threshold = cfg.SimilarityThreshold
	items, err := fetcher.Fetch(ctx, urls)
	if err != nil {
		return err
	}
	for i, item := range items {
		fmt.Printf("%3d  %s  %s\n     %s\n", i, item.Published, item.Title, item.Link)
	}
	fmt.Printf("%d item(s)\n", len(items))
	return nil
}

func runRunsShow(ctx context.Context, jctx jobs.JobContext, args []string) error {
	fs := flag.NewFlagSet("Runs:Show", flag.ContinueOnError)
	status := fs.String("status", "", "Pick the newest run with this status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if jctx.Store == nil {
		return errors.New("run history needs a database ([db] section)")
	}
	runID, err := parseRunID(fs.Args())
	if err != nil {
		return err
	}

	var run db.Run
	if runID != "" {
		run, err = jctx.Store.GetRun(ctx, runID)
	} else {
		run, err = jctx.Store.LatestRun(ctx, *status)
	}
	if err != nil {
		return err
	}
	records, err := jctx.Store.ListRecords(ctx, run.ID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	meta := json.RawMessage(run.Meta)
	if len(meta) == 0 {
		meta = json.RawMessage("{}")
	}
	return enc.Encode(map[string]any{
		"id":        run.ID,
		"run_date":  run.RunDate,
		"hostname":  run.Hostname,
		"status":    run.Status,
		"accepted":  run.Accepted,
		"defaulted": run.Defaulted,
		"skipped":   run.Skipped,
		"meta":      meta,
		"updated":   run.UpdatedAt,
		"records":   records,
	})
}

func previewLocation(cfg config.Config) *time.Location {
	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			return loc
		}
	}
	return time.FixedZone("KST", 9*60*60)
}

func logJobStart(name string, opts jobs.JobOptions) {
	utils.Logf("start %s run_id=%s queue=%t once=%t sleep=%d info=%t dry_run=%t upload=%t", name, opts.RunID, opts.Queue, opts.QueueOnce, opts.Sleep, opts.Info, opts.DryRun, opts.Upload)
}

func printUsage() {
	fmt.Println("Usage: manager <command> [args]")
	fmt.Println("Global flags:")
	fmt.Println("  --verbose   Enable diagnostic logging (can appear before or after the command).")
	fmt.Println("Commands:")
	fmt.Println("  job:Collect [run_id] [--dry-run]")
	fmt.Println("  job:RenderCards [run_id] [--sleep=N] [--queue] [--once]")
	fmt.Println("  job:AssembleVideo [run_id] [--sleep=N] [--queue] [--once]")
	fmt.Println("  job:UploadToYoutube [run_id] [--sleep=N] [--queue] [--once] [--info]")
	fmt.Println("  job:UploadToDrive [run_id] [--sleep=N] [--queue] [--once]")
	fmt.Println("  job:Pipeline [run_id] [--upload] [--dry-run]")
	fmt.Println("  Rss:Preview [url...] [--days=N]")
	fmt.Println("  Runs:Show [run_id] [--status=S]")
	fmt.Println("  migrate [up|status] [--dir=path] [--dry-run]")
}
