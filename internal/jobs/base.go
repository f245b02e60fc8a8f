package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stock-parody/manager-go/internal/config"
	"stock-parody/manager-go/internal/db"
	"stock-parody/manager-go/internal/queue"
	"stock-parody/manager-go/internal/utils"
)

// JobContext carries the shared dependencies. Store and Queue are nil when the
// corresponding section is not configured.
type JobContext struct {
	Config config.Config
	Store  *db.Store
	Queue  *queue.Client
}

type JobOptions struct {
	RunID     string
	Sleep     int
	Queue     bool
	QueueOnce bool
	Info      bool
	DryRun    bool
	Upload    bool
}

type BaseJob struct {
	QueueInput      string
	QueueOutput     string
	IgnoreHostCheck bool
}

type QueuePayload struct {
	RunID    string `json:"run_id"`
	Hostname string `json:"hostname"`
}

type QueueHandler func(ctx context.Context, runID string, hostname string) error

func (b BaseJob) RunQueue(ctx context.Context, jctx JobContext, opts JobOptions, handler QueueHandler) error {
	if jctx.Queue == nil {
		return fmt.Errorf("queue client is not configured")
	}

	sleep := time.Duration(opts.Sleep) * time.Second
	if sleep <= 0 {
		sleep = 30 * time.Second
	}

	for {
		msg, err := jctx.Queue.Pop(b.QueueInput)
		if err != nil {
			return err
		}
		if msg == nil {
			utils.Debug("queue empty", "queue", b.QueueInput, "sleep", sleep)
			if opts.QueueOnce {
				return nil
			}
			if err := sleepContext(ctx, sleep); err != nil {
				return err
			}
			continue
		}

		if b.handle(ctx, jctx, msg.Body, handler) {
			_ = msg.Nack(true)
			if err := sleepContext(ctx, sleep); err != nil {
				return err
			}
		} else {
			_ = msg.Ack()
		}
		if opts.QueueOnce {
			return nil
		}
	}
}

// handle runs one message and reports whether it should go back on the queue.
func (b BaseJob) handle(ctx context.Context, jctx JobContext, body []byte, handler QueueHandler) bool {
	var payload QueuePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.Warn("queue payload json decode failed", "queue", b.QueueInput, "err", err)
		return false
	}
	if payload.RunID == "" {
		utils.Warn("queue payload invalid (missing run_id)", "queue", b.QueueInput)
		return false
	}
	if !b.IgnoreHostCheck && payload.Hostname != "" && payload.Hostname != jctx.Config.Hostname {
		utils.Warn("queue host mismatch", "queue", b.QueueInput, "message_host", payload.Hostname, "local_host", jctx.Config.Hostname)
		return true
	}
	if err := handler(ctx, payload.RunID, payload.Hostname); err != nil {
		utils.Error("queue handler error", "queue", b.QueueInput, "run_id", payload.RunID, "err", err)
		return true
	}
	return false
}

// handoff tells the next stage that runID is ready. It is a no-op without a queue.
func (b BaseJob) handoff(jctx JobContext, runID string) error {
	if jctx.Queue == nil || b.QueueOutput == "" {
		return nil
	}
	return jctx.Queue.PublishJSON(b.QueueOutput, QueuePayload{RunID: runID, Hostname: jctx.Config.Hostname})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// setStatus records progress when run history is enabled.
func setStatus(ctx context.Context, jctx JobContext, runID, status string) {
	if jctx.Store == nil || runID == "" {
		return
	}
	if err := jctx.Store.UpdateRunStatus(ctx, runID, status); err != nil {
		utils.Warn("run status update failed", "run_id", runID, "status", status, "err", err)
	}
}

func mergeMeta(ctx context.Context, jctx JobContext, runID string, meta map[string]any) {
	if jctx.Store == nil || runID == "" {
		return
	}
	if err := jctx.Store.MergeRunMeta(ctx, runID, meta); err != nil {
		utils.Warn("run meta update failed", "run_id", runID, "err", err)
	}
}

// resolveRunID falls back to the newest run when none was given.
func resolveRunID(ctx context.Context, jctx JobContext, runID string) string {
	if runID != "" || jctx.Store == nil {
		return runID
	}
	run, err := jctx.Store.LatestRun(ctx, "")
	if err != nil {
		if !errors.Is(err, db.ErrRunNotFound) {
			utils.Warn("latest run lookup failed", "err", err)
		}
		return ""
	}
	return run.ID
}
