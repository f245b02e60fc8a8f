package jobs

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"stock-parody/manager-go/internal/config"
	"stock-parody/manager-go/internal/utils"
)

func TestMain(m *testing.M) {
	utils.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func TestHandle(t *testing.T) {
	job := BaseJob{QueueInput: "parody.test"}
	jctx := JobContext{Config: config.Config{Hostname: "box-a"}}

	var got []string
	ok := func(ctx context.Context, runID string, hostname string) error {
		got = append(got, runID)
		return nil
	}
	failing := func(ctx context.Context, runID string, hostname string) error {
		return errors.New("boom")
	}

	tests := []struct {
		name    string
		body    string
		handler QueueHandler
		requeue bool
	}{
		{name: "bad json", body: "{", handler: ok, requeue: false},
		{name: "missing run id", body: `{"hostname":"box-a"}`, handler: ok, requeue: false},
		{name: "other host", body: `{"run_id":"r1","hostname":"box-b"}`, handler: ok, requeue: true},
		{name: "handler error", body: `{"run_id":"r2"}`, handler: failing, requeue: true},
		{name: "processed", body: `{"run_id":"r3","hostname":"box-a"}`, handler: ok, requeue: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.requeue, job.handle(context.Background(), jctx, []byte(tt.body), tt.handler))
		})
	}
	assert.Equal(t, []string{"r3"}, got)
}

func TestHandleIgnoresHostWhenAsked(t *testing.T) {
	job := BaseJob{QueueInput: "parody.test", IgnoreHostCheck: true}
	jctx := JobContext{Config: config.Config{Hostname: "box-a"}}
	called := false
	requeue := job.handle(context.Background(), jctx, []byte(`{"run_id":"r1","hostname":"box-b"}`), func(ctx context.Context, runID string, hostname string) error {
		called = true
		assert.Equal(t, "box-b", hostname)
		return nil
	})
	assert.Equal(t, false, requeue)
	assert.Equal(t, true, called)
}

func TestRunQueueWithoutClient(t *testing.T) {
	err := BaseJob{}.RunQueue(context.Background(), JobContext{}, JobOptions{}, nil)
	assert.NotEqual(t, nil, err)
}

func TestHandoffWithoutQueueIsNoop(t *testing.T) {
	assert.Equal(t, nil, BaseJob{QueueOutput: "parody.next"}.handoff(JobContext{}, "r1"))
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, sleepContext(ctx, time.Hour))
}

func TestPaths(t *testing.T) {
	cfg := config.Config{BaseOutputFolder: "/data/out"}
	assert.Equal(t, "/data/out/parody_card", cardDir(cfg))
	assert.Equal(t, "/data/out/parody_video", videoDir(cfg))
	assert.Equal(t, kst, location(config.Config{Timezone: "Not/AZone"}))
	assert.Equal(t, "UTC", location(config.Config{Timezone: "UTC"}).String())
}
