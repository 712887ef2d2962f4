package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"keyremapd/internal/config"
	"keyremapd/internal/dialog"
	"keyremapd/internal/hotkey"
	"keyremapd/internal/logging"
	"keyremapd/internal/notify"
	"keyremapd/internal/platform"
	"keyremapd/internal/remap"
	"keyremapd/internal/startup"
	"keyremapd/internal/tray"
)

const crashRetention = 30 * 24 * time.Hour

type runOptions struct {
	configPath  string
	console     bool
	startupMode bool
	logLevel    string
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var opts runOptions
	fs.StringVar(&opts.configPath, "config", "", "configuration file")
	fs.BoolVar(&opts.console, "console", false, "run in the console instead of the tray")
	fs.BoolVar(&opts.startupMode, "startup", false, "started at login")
	fs.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	fs.Parse(args)

	if err := run(opts); err != nil {
		fatal(opts, err)
	}
}

// fatal reports err where the user can see it: the console, or a message
// box when running without one.
func fatal(opts runOptions, err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if !opts.console {
		_ = dialog.Error("keyremapd", err.Error())
	}
	os.Exit(1)
}

func run(opts runOptions) error {
	release, err := platform.AcquireSingleInstance("keyremapd")
	if err != nil {
		if errors.Is(err, platform.ErrAlreadyRunning) {
			return errors.New("keyremapd is already running")
		}
		return fmt.Errorf("single instance check: %w", err)
	}
	defer release()

	path := config.FindConfigFile(opts.configPath)
	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	logCfg, err := loggingConfig(cfg.Logging, opts.console, opts.logLevel)
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	crashes := logging.NewCrashHandler(&logging.CrashHandlerConfig{
		CrashDir: logging.DefaultCrashDir(),
		Version:  version,
		Logger:   logger.Logger,
	})
	defer func() {
		if r := recover(); r != nil {
			crashes.HandlePanic(r, map[string]string{"goroutine": "main"})
			os.Exit(2)
		}
	}()
	if err := crashes.CleanupOldCrashReports(crashRetention); err != nil {
		logger.Debug("prune crash reports", "error", err)
	}

	logger.Info("starting",
		"version", version,
		"config", path,
		"config_created", created,
		"startup_mode", opts.startupMode,
		"log_file", logger.FilePath(),
	)

	a := newApp(path, cfg, logger, crashes, notify.New(cfg.Notifications, opts.startupMode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.start(ctx); err != nil {
		return err
	}
	defer a.shutdown()

	if opts.console {
		fmt.Printf("keyremapd running for %q; press Ctrl+C to exit\n", cfg.TargetApplication)
		<-ctx.Done()
		return nil
	}

	go func() {
		<-ctx.Done()
		a.tray.Quit()
	}()
	if err := a.tray.Run(a.refreshTray); errors.Is(err, tray.ErrUnsupported) {
		logger.Warn("no tray on this platform; running until interrupted")
		<-ctx.Done()
	}
	return nil
}

// app wires configuration, the remap session and the desktop surfaces.
type app struct {
	path     string
	logger   *logging.Logger
	log      *slog.Logger
	notifier *notify.Notifier
	crashes  *logging.CrashHandler
	session  *remap.Session
	loader   *config.Loader
	hotkeys  *hotkey.Handler
	tray     *tray.Tray

	mu  sync.Mutex
	cfg *config.Config
}

func newApp(path string, cfg *config.Config, logger *logging.Logger, crashes *logging.CrashHandler, notifier *notify.Notifier) *app {
	a := &app{
		path:     path,
		cfg:      cfg,
		logger:   logger,
		log:      logger.WithComponent("app").Logger,
		notifier: notifier,
		crashes:  crashes,
		loader:   config.NewLoader(path),
	}
	a.session = remap.NewSession(remap.Deps{
		Notifier: sessionEvents{Notifier: notifier, onFocus: a.refreshTray},
		Logger:   logger.Logger,
	})
	a.hotkeys = hotkey.New(a.guard("hotkey", func() { a.togglePause() }), logger.WithComponent("hotkey").Logger)
	a.tray = tray.New(tray.Callbacks{
		OnStatus:        a.guard("status", a.showStatus),
		OnReload:        a.guard("reload", a.loader.Reload),
		OnOpenConfig:    a.guard("open-config", a.openConfig),
		OnTogglePause:   a.togglePause,
		OnToggleStartup: a.toggleStartup,
		StartupEnabled:  startupEnabled,
	})
	return a
}

func (a *app) start(ctx context.Context) error {
	table, parsed := buildTable(a.cfg, a.log)

	// A failed install is reported through the notifier and retried on
	// the next reload, so it does not stop the process.
	if err := a.session.Install(ctx, table, sessionOptions(a.cfg)); err != nil {
		a.log.Error("install keyboard hook", "error", err)
	} else {
		a.notifier.Started(a.cfg.TargetApplication, parsed, len(a.cfg.Mappings))
	}

	a.bindHotkey("", a.cfg.ToggleHotkey)

	if _, err := a.loader.Load(); err != nil {
		a.log.Warn("initial config load for watcher", "error", err)
	}
	a.loader.OnChange(func(cfg *config.Config) {
		a.guard("apply-config", func() { a.apply(cfg) })()
	})
	if err := a.loader.Watch(); err != nil {
		a.log.Warn("config file watching disabled", "error", err)
	}
	go a.guard("config-errors", func() { a.watchErrors(ctx) })()
	return nil
}

// guard wraps fn so a panic in it is written as a crash report and
// logged instead of ending the process.
func (a *app) guard(name string, fn func()) func() {
	return func() {
		a.crashes.Recover(map[string]string{"callback": name}, fn)
	}
}

// apply installs a reloaded configuration.
func (a *app) apply(cfg *config.Config) {
	a.mu.Lock()
	prev := a.cfg
	a.cfg = cfg
	a.mu.Unlock()

	if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
		a.logger.SetLevel(level)
	}
	a.notifier.SetEnabled(cfg.Notifications)

	table, parsed := buildTable(cfg, a.log)
	if err := a.session.Reload(table, sessionOptions(cfg)); err != nil {
		a.log.Error("reload", "error", err)
		a.notifier.ReloadError(err)
		return
	}
	a.notifier.Reloaded(cfg.TargetApplication, parsed, len(cfg.Mappings))

	if prev.ToggleHotkey != cfg.ToggleHotkey {
		a.bindHotkey(prev.ToggleHotkey, cfg.ToggleHotkey)
	}
	a.refreshTray()
}

func (a *app) watchErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-a.loader.Errors():
			a.log.Error("config reload failed", "error", err)
			a.notifier.ReloadError(err)
		}
	}
}

func (a *app) bindHotkey(prev, next string) {
	if next == "" {
		if prev != "" {
			if err := a.hotkeys.Unregister(); err != nil {
				a.log.Warn("unregister hotkey", "error", err)
			}
		}
		return
	}
	combo, err := hotkey.Parse(next)
	if err != nil {
		a.log.Warn("invalid toggle_hotkey", "error", err)
		a.notifier.ConfigError(err)
		return
	}
	if err := a.hotkeys.Register(combo); err != nil {
		if errors.Is(err, hotkey.ErrUnsupported) {
			a.log.Debug("toggle hotkey not available", "error", err)
			return
		}
		a.log.Warn("register hotkey", "error", err)
		a.notifier.ConfigError(err)
	}
}

func (a *app) togglePause() bool {
	paused := !a.session.Paused()
	a.session.SetPaused(paused)
	a.notifier.Paused(paused)
	a.refreshTray()
	return paused
}

func (a *app) refreshTray() {
	st := a.session.Status()
	a.tray.SetPaused(st.Paused)
	a.tray.SetStatus(tray.StatusLine(st))
}

func (a *app) showStatus() {
	a.refreshTray()
	if err := dialog.Info("keyremapd status", tray.StatusText(a.session.Status())); err != nil {
		a.log.Debug("status dialog", "error", err)
	}
}

func (a *app) openConfig() {
	if err := dialog.OpenFile(a.path); err != nil {
		a.log.Warn("open config", "path", a.path, "error", err)
		a.notifier.ConfigError(fmt.Errorf("open %s: %w", a.path, err))
	}
}

func (a *app) toggleStartup() (bool, error) {
	enabled, err := startup.Toggle()
	if err != nil {
		a.log.Warn("toggle start with Windows", "error", err)
		a.notifier.StartupError(err)
		return false, err
	}
	a.log.Info("start with Windows", "enabled", enabled)
	return enabled, nil
}

func startupEnabled() bool {
	enabled, _ := startup.IsEnabled()
	return enabled
}

func (a *app) shutdown() {
	if err := a.hotkeys.Unregister(); err != nil {
		a.log.Warn("unregister hotkey", "error", err)
	}
	if err := a.loader.Close(); err != nil {
		a.log.Warn("close config watcher", "error", err)
	}
	if err := a.session.Uninstall(); err != nil && !errors.Is(err, remap.ErrNotInstalled) {
		a.log.Warn("uninstall keyboard hook", "error", err)
	}
	a.log.Info("stopped")
}
