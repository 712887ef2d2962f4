package main

import (
	"fmt"
	"log/slog"
	"time"

	"keyremapd/internal/config"
	"keyremapd/internal/logging"
	"keyremapd/internal/notify"
	"keyremapd/internal/remap"
)

// loggingConfig maps the logging section onto logging.Config. Console mode
// mirrors file output to stderr.
func loggingConfig(lc config.LoggingConfig, console bool, levelOverride string) (*logging.Config, error) {
	cfg := logging.DefaultConfig()

	level := lc.Level
	if levelOverride != "" {
		level = levelOverride
	}
	if level != "" {
		l, err := logging.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = l
	}

	format, err := logging.ParseFormat(lc.Format)
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	if lc.Output != "" {
		cfg.Output = lc.Output
	}
	if console && cfg.Output == "file" {
		cfg.Output = "both"
	}
	if lc.FilePath != "" {
		cfg.FilePath = lc.FilePath
	}
	if lc.MaxSizeMB > 0 {
		cfg.MaxSize = int64(lc.MaxSizeMB)
	}
	cfg.MaxBackups = lc.MaxBackups
	cfg.Compress = lc.Compress
	return cfg, nil
}

// crashSummary describes the crash reports in dir, or returns "" when
// there are none.
func crashSummary(dir string) string {
	h := logging.NewCrashHandler(&logging.CrashHandlerConfig{CrashDir: dir})
	reports, err := h.GetCrashReports()
	if err != nil || len(reports) == 0 {
		return ""
	}
	last := reports[len(reports)-1]
	return fmt.Sprintf("%d in %s (latest %s: %s)",
		len(reports), dir, last.Timestamp.Local().Format(time.DateTime), last.PanicValue)
}

func pairsOf(cfg *config.Config) []remap.Pair {
	pairs := make([]remap.Pair, len(cfg.Mappings))
	for i, m := range cfg.Mappings {
		pairs[i] = remap.Pair{From: m.From, To: m.To}
	}
	return pairs
}

// buildTable resolves the configured mappings, logging the ones that are
// skipped. It returns the table and how many mappings it holds.
func buildTable(cfg *config.Config, logger *slog.Logger) (*remap.Table, int) {
	table, problems := remap.ParseTable(pairsOf(cfg))
	for _, p := range problems {
		logger.Warn("mapping skipped", "error", p)
	}
	logger.Info("mappings loaded",
		"parsed", table.Len(),
		"total", len(cfg.Mappings),
	)
	for _, m := range table.Mappings() {
		logger.Debug("mapping", "mapping", m.String())
	}
	return table, table.Len()
}

func sessionOptions(cfg *config.Config) remap.Options {
	return remap.Options{
		Target:             cfg.TargetApplication,
		WindowTitle:        cfg.TargetWindowTitle,
		FocusInterval:      cfg.FocusInterval(),
		ReleaseOnFocusLoss: cfg.ReleaseOnFocusLoss,
	}
}

// sessionEvents forwards engine events to the notifier and refreshes the
// tray on focus changes. The refresh runs on its own goroutine because
// focus callbacks may fire while the session is busy.
type sessionEvents struct {
	*notify.Notifier
	onFocus func()
}

func (e sessionEvents) Activated(st remap.FocusState) {
	e.Notifier.Activated(st)
	go e.onFocus()
}

func (e sessionEvents) Deactivated(st remap.FocusState) {
	e.Notifier.Deactivated(st)
	go e.onFocus()
}
