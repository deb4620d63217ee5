package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/trackcam/internal/testutil"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	logs := testutil.CaptureLogs(t)

	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "tuning.json", `{"fail_threshold": 50}`)

	got := make(chan *TuningConfig, 4)
	w := NewWatcher(path, func(cfg *TuningConfig) { got <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-w.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}

	testutil.WriteFile(t, dir, "tuning.json", `{"fail_threshold": 7}`)

	select {
	case cfg := <-got:
		assert.Equal(t, 7, cfg.GetFailThreshold())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}
	assert.True(t, logs.Contains("reloaded"))

	cancel()
	assert.NoError(t, <-done)
}

func TestWatcherIgnoresInvalidFile(t *testing.T) {
	logs := testutil.CaptureLogs(t)

	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "tuning.json", `{}`)

	got := make(chan *TuningConfig, 4)
	w := NewWatcher(path, func(cfg *TuningConfig) { got <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	<-w.Ready()

	testutil.WriteFile(t, dir, "tuning.json", `{"fail_threshold": 0}`)

	select {
	case cfg := <-got:
		t.Fatalf("unexpected reload with fail_threshold=%d", cfg.GetFailThreshold())
	case <-time.After(500 * time.Millisecond):
	}
	assert.True(t, logs.Contains("keeping previous config"))
}

func TestWatcherMissingDirectory(t *testing.T) {
	w := NewWatcher("/nonexistent/dir/tuning.json", func(*TuningConfig) {})
	err := w.Run(context.Background())
	assert.Error(t, err)
}
