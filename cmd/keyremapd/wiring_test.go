package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyremapd/internal/config"
	"keyremapd/internal/keys"
	"keyremapd/internal/logging"
	"keyremapd/internal/notify"
	"keyremapd/internal/remap"
)

func TestLoggingConfig(t *testing.T) {
	lc := config.DefaultConfig().Logging

	cfg, err := loggingConfig(lc, false, "")
	require.NoError(t, err)
	assert.Equal(t, logging.LevelInfo, cfg.Level)
	assert.Equal(t, "file", cfg.Output)
	assert.Equal(t, int64(10), cfg.MaxSize)
	assert.Equal(t, 5, cfg.MaxBackups)
	assert.True(t, cfg.Compress)
	assert.Equal(t, logging.DefaultLogPath(), cfg.FilePath)

	cfg, err = loggingConfig(lc, true, "debug")
	require.NoError(t, err)
	assert.Equal(t, "both", cfg.Output)
	assert.Equal(t, logging.LevelDebug, cfg.Level)

	lc.Output = "stdout"
	lc.Format = "json"
	lc.FilePath = "/var/log/k.log"
	cfg, err = loggingConfig(lc, true, "")
	require.NoError(t, err)
	assert.Equal(t, "stdout", cfg.Output)
	assert.Equal(t, logging.FormatJSON, cfg.Format)
	assert.Equal(t, "/var/log/k.log", cfg.FilePath)

	_, err = loggingConfig(lc, false, "loud")
	assert.Error(t, err)
}

func TestSessionOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TargetWindowTitle = "Untitled - Notepad"
	cfg.FocusIntervalMs = 750
	cfg.ReleaseOnFocusLoss = true

	assert.Equal(t, remap.Options{
		Target:             "notepad",
		WindowTitle:        "Untitled - Notepad",
		FocusInterval:      750 * time.Millisecond,
		ReleaseOnFocusLoss: true,
	}, sessionOptions(cfg))
}

func TestBuildTableSkipsUnknownKeys(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mappings = append(cfg.Mappings, config.Mapping{From: "NOPE", To: "A"})

	table, parsed := buildTable(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, 5, parsed)

	to, ok := table.Lookup(keys.Code('A'))
	require.True(t, ok)
	assert.Equal(t, keys.Left, to)
}

func TestSessionEventsRefreshOnFocus(t *testing.T) {
	refreshed := make(chan struct{}, 2)
	ev := sessionEvents{
		Notifier: notify.NewWithSender(true, false, func(notify.Level, string, string) error { return nil }),
		onFocus:  func() { refreshed <- struct{}{} },
	}

	var n remap.Notifier = ev
	n.Activated(remap.FocusState{Active: true})
	n.Deactivated(remap.FocusState{})

	for i := 0; i < 2; i++ {
		select {
		case <-refreshed:
		case <-time.After(time.Second):
			t.Fatal("focus change did not refresh")
		}
	}
}

func TestGuardRecordsPanics(t *testing.T) {
	dir := t.TempDir()
	crashes := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir: dir,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	a := &app{crashes: crashes}

	ran := false
	a.guard("status", func() { ran = true })()
	assert.True(t, ran)
	assert.Empty(t, crashSummary(dir))

	assert.NotPanics(t, a.guard("reload", func() { panic("bad config") }))

	reports, err := crashes.GetCrashReports()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "reload", reports[0].Context["callback"])

	summary := crashSummary(dir)
	assert.Contains(t, summary, "1 in "+dir)
	assert.Contains(t, summary, "bad config")
}
