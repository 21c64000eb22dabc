package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/logger"
	"taskflow/internal/notify"
	"taskflow/internal/tasks"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORAGE_BACKEND", "badger")
	t.Setenv("BADGER_PATH", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("NOTIFY_REDIS_ENABLED", "false")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "taskflow %s", strings.Join(args, " "))
	return out
}

func addedID(t *testing.T, out string) string {
	t.Helper()
	id := strings.TrimSpace(strings.TrimPrefix(out, "Added "))
	require.NotEmpty(t, id)
	return id
}

func TestCLITaskLifecycle(t *testing.T) {
	setupEnv(t)

	report := addedID(t, mustRun(t, "add", "Write", "report", "-p", "high", "--due", "2030-01-15"))
	groceries := addedID(t, mustRun(t, "add", "Buy groceries", "-p", "low"))

	out := mustRun(t, "list")
	assert.Less(t, strings.Index(out, report), strings.Index(out, groceries), "high priority task listed first")
	assert.Contains(t, out, "2030-01-15")

	out = mustRun(t, "list", "--search", "groceries", "--json")
	var listed []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, groceries, listed[0].ID)

	out = mustRun(t, "done", report)
	assert.Contains(t, out, "completed")

	out = mustRun(t, "stats", "--json")
	var stats tasks.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 50, stats.CompletionRate)

	mustRun(t, "edit", groceries, "--title", "Buy vegetables", "--due", "2030-02-01")
	out = mustRun(t, "list", "--status", "pending")
	assert.Contains(t, out, "Buy vegetables")
	assert.NotContains(t, out, report)

	out = mustRun(t, "clear")
	assert.Contains(t, out, "Cleared 1")

	mustRun(t, "rm", groceries)
	out = mustRun(t, "list")
	assert.Contains(t, out, "No tasks")
}

func TestCLIErrors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "add", "   ")
	assert.ErrorIs(t, err, tasks.ErrInvalidTask)

	_, err = run(t, "add", "x", "--due", "next week")
	assert.Error(t, err)

	_, err = run(t, "done", "missing")
	assert.ErrorIs(t, err, tasks.ErrTaskNotFound)

	_, err = run(t, "rm", "missing")
	assert.ErrorIs(t, err, tasks.ErrTaskNotFound)

	_, err = run(t, "edit", "missing")
	assert.EqualError(t, err, "nothing to change")

	_, err = run(t, "list", "--status", "someday")
	assert.Error(t, err)

	_, err = run(t, "--backend", "floppy", "list")
	assert.ErrorContains(t, err, "unknown storage backend")
}

func TestWatchConsumerPrintsEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	var out bytes.Buffer
	a := &app{
		cfg: &config.Config{Notify: config.NotifyConfig{Queue: "taskflow:test"}},
		log: logger.Discard(),
		out: &out,
	}

	ctx := context.Background()
	pub := notify.NewRedisNotifier(rdb, "taskflow:test", a.log)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Enqueue(ctx, notify.Event{Kind: notify.KindCreated, TaskID: "t1", At: at}))
	require.NoError(t, pub.Enqueue(ctx, notify.Event{Kind: notify.KindSaveFailed, TaskID: "t1", At: at}))

	consumer := newWatchConsumer(a, rdb, true)
	require.NoError(t, consumer.ProcessNext(ctx))
	require.NoError(t, consumer.ProcessNext(ctx))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "save-failed")
	assert.Contains(t, lines[0], "t1")
}
