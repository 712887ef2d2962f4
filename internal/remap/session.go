package remap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"keyremapd/internal/keys"
	"keyremapd/internal/platform"
)

// Session lifecycle errors.
var (
	ErrAlreadyInstalled = errors.New("remap session already installed")
	ErrNotInstalled     = errors.New("remap session not installed")
)

// Notifier receives user-facing session events. Implementations must
// not block for long; Activated and Deactivated run on the focus
// goroutine.
type Notifier interface {
	Activated(state FocusState)
	Deactivated(state FocusState)
	Error(err error)
}

type nopNotifier struct{}

func (nopNotifier) Activated(FocusState)   {}
func (nopNotifier) Deactivated(FocusState) {}
func (nopNotifier) Error(error)            {}

// HookInstaller installs the OS keyboard hook.
type HookInstaller func(proc platform.HookProc, opts platform.HookOptions) (platform.KeyboardHook, error)

// Options are the per-session settings that come from configuration.
type Options struct {
	// Target is matched case-insensitively as a substring of the
	// foreground process name.
	Target string
	// WindowTitle selects the window for directed arrow delivery.
	WindowTitle string
	// FocusInterval is the focus polling period.
	FocusInterval time.Duration
	// ReleaseOnFocusLoss releases held keys when the target loses focus.
	ReleaseOnFocusLoss bool
}

// Deps are the collaborators a session drives. Nil fields get the
// platform implementations.
type Deps struct {
	Injector    Injector
	Resolver    ProcessResolver
	InstallHook HookInstaller
	Notifier    Notifier
	Logger      *slog.Logger
}

// Status is a snapshot of a session.
type Status struct {
	Installed bool
	Paused    bool
	Target    string
	Focus     FocusState
	Mappings  int
	Pressed   int
	Stats     Stats
}

// At most one session is installed per process.
var (
	sessionMu sync.Mutex
	current   *Session
)

// Session owns one installation of the remap engine: the keyboard hook,
// the interceptor behind it and the focus monitor feeding it.
type Session struct {
	deps   Deps
	logger *slog.Logger

	paused             atomic.Bool
	releaseOnFocusLoss atomic.Bool
	failureNotified    atomic.Bool

	mu          sync.Mutex
	installed   bool
	opts        Options
	baseCtx     context.Context
	cancel      context.CancelFunc
	drained     chan struct{}
	hook        platform.KeyboardHook
	interceptor *Interceptor
	synth       *Synthesizer
	focus       *FocusMonitor
	runCtx      context.Context
}

// NewSession returns an uninstalled session.
func NewSession(deps Deps) *Session {
	if deps.Injector == nil {
		deps.Injector = platform.NewInjector()
	}
	if deps.Resolver == nil {
		deps.Resolver = platform.NewProcessResolver()
	}
	if deps.InstallHook == nil {
		deps.InstallHook = platform.InstallKeyboardHook
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Session{
		deps:    deps,
		logger:  deps.Logger.With("component", "engine"),
		baseCtx: context.Background(),
	}
}

// Install starts the focus monitor and installs the keyboard hook. Any
// other installed session in the process is uninstalled first. On
// failure the error is also sent to the notifier and the session stays
// uninstalled; a later Reload retries.
func (s *Session) Install(ctx context.Context, table *Table, opts Options) error {
	sessionMu.Lock()
	prev := current
	sessionMu.Unlock()
	if prev != nil && prev != s {
		if err := prev.Uninstall(); err != nil && !errors.Is(err, ErrNotInstalled) {
			s.logger.Warn("uninstall previous session", "error", err)
		}
	}

	s.mu.Lock()
	if s.installed {
		s.mu.Unlock()
		return ErrAlreadyInstalled
	}
	err := s.installLocked(ctx, table, opts)
	s.mu.Unlock()
	if err != nil {
		s.deps.Notifier.Error(err)
		return err
	}

	sessionMu.Lock()
	current = s
	sessionMu.Unlock()
	return nil
}

func (s *Session) installLocked(ctx context.Context, table *Table, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx = ctx
	s.opts = opts
	s.releaseOnFocusLoss.Store(opts.ReleaseOnFocusLoss)
	s.failureNotified.Store(false)

	synth := NewSynthesizer(s.deps.Injector, opts.WindowTitle)
	focus := NewFocusMonitor(s.deps.Resolver, s.deps.Logger)
	ic := NewInterceptor(table, focus, synth)
	ic.SetPaused(s.paused.Load())
	focus.OnTransition(func(prev, next FocusState) {
		s.onFocusTransition(ic, next)
	})
	// Keys still held from an earlier visit had their physical release
	// forwarded while inactive. Send the target the matching key-up
	// before the hook sees the target as active again.
	focus.OnActivating(func() {
		if n := ic.ReleaseAll(); n > 0 {
			s.logger.Debug("released keys held across focus change", "count", n)
		}
	})

	runCtx, cancel := context.WithCancel(ctx)
	if err := focus.Start(runCtx, opts.Target, opts.FocusInterval); err != nil {
		cancel()
		return fmt.Errorf("start focus monitor: %w", err)
	}

	panics := make(chan any, 8)
	hook, err := s.deps.InstallHook(ic.HookProc(), platform.HookOptions{
		OnPanic: func(r any) {
			select {
			case panics <- r:
			default:
			}
		},
	})
	if err != nil {
		focus.Stop()
		cancel()
		return fmt.Errorf("install keyboard hook: %w", err)
	}

	s.synth, s.focus, s.interceptor = synth, focus, ic
	s.hook, s.runCtx, s.cancel = hook, runCtx, cancel
	s.drained = make(chan struct{})
	s.installed = true
	go s.drain(runCtx, ic, panics, s.drained)

	s.logger.Info("keyboard hook installed",
		"target", opts.Target,
		"mappings", ic.Table().Len(),
		"focus_interval", focus.interval,
		"release_on_focus_loss", opts.ReleaseOnFocusLoss,
		"hook_thread", hook.ThreadID(),
	)
	return nil
}

// Uninstall stops the focus monitor, removes the hook and releases any
// held keys.
func (s *Session) Uninstall() error {
	s.mu.Lock()
	err := s.uninstallLocked()
	s.mu.Unlock()

	sessionMu.Lock()
	if current == s {
		current = nil
	}
	sessionMu.Unlock()
	return err
}

func (s *Session) uninstallLocked() error {
	if !s.installed {
		return ErrNotInstalled
	}
	s.focus.Stop()
	hookErr := s.hook.Close()
	released := s.interceptor.ReleaseAll()
	s.cancel()
	<-s.drained
	s.installed = false
	s.hook = nil

	s.logger.Info("keyboard hook removed", "released", released)
	if hookErr != nil {
		return fmt.Errorf("remove keyboard hook: %w", hookErr)
	}
	return nil
}

// Reload swaps in a new table and options without reinstalling the hook.
// Keys held under the old table are released first. The focus monitor is
// restarted when the target or interval changes; if the old target was
// focused, the notifier sees it deactivate. An uninstalled session is
// installed.
func (s *Session) Reload(table *Table, opts Options) error {
	s.mu.Lock()
	if !s.installed {
		ctx := s.baseCtx
		s.mu.Unlock()
		return s.Install(ctx, table, opts)
	}
	defer s.mu.Unlock()

	prev := s.opts
	s.opts = opts
	s.synth.SetWindowTitle(opts.WindowTitle)
	s.releaseOnFocusLoss.Store(opts.ReleaseOnFocusLoss)
	s.interceptor.SwapTable(table)

	if normalizeTarget(prev.Target) != normalizeTarget(opts.Target) || prev.FocusInterval != opts.FocusInterval {
		wasActive := s.focus.Active()
		s.focus.Stop()
		if wasActive {
			s.onFocusTransition(s.interceptor, s.focus.State())
		}
		if err := s.focus.Start(s.runCtx, opts.Target, opts.FocusInterval); err != nil {
			return fmt.Errorf("restart focus monitor: %w", err)
		}
	}

	s.logger.Info("configuration reloaded", "target", opts.Target, "mappings", s.interceptor.Table().Len())
	return nil
}

// SetPaused suspends or resumes remapping. Pausing releases held keys.
func (s *Session) SetPaused(paused bool) {
	s.paused.Store(paused)

	s.mu.Lock()
	ic := s.interceptor
	installed := s.installed
	s.mu.Unlock()
	if !installed {
		return
	}
	ic.SetPaused(paused)
	if paused {
		ic.ReleaseAll()
	}
	s.logger.Info("remapping paused", "paused", paused)
}

// Paused reports whether remapping is paused.
func (s *Session) Paused() bool {
	return s.paused.Load()
}

// Installed reports whether the hook is live.
func (s *Session) Installed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.installed
}

// Status returns a snapshot for display.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Installed: s.installed,
		Paused:    s.paused.Load(),
		Target:    s.opts.Target,
	}
	if s.interceptor != nil {
		st.Mappings = s.interceptor.Table().Len()
		st.Pressed = len(s.interceptor.Pressed())
		st.Stats = s.interceptor.Stats()
	}
	if s.focus != nil && s.installed {
		st.Focus = s.focus.State()
	}
	return st
}

func (s *Session) onFocusTransition(ic *Interceptor, next FocusState) {
	if next.Active {
		s.logger.Info("target application activated", "process", next.Process, "pid", next.PID)
		s.deps.Notifier.Activated(next)
		return
	}
	s.logger.Info("target application deactivated", "process", next.Process, "pid", next.PID)
	if s.releaseOnFocusLoss.Load() {
		if n := ic.ReleaseAll(); n > 0 {
			s.logger.Debug("released keys on focus loss", "count", n)
		}
	}
	s.deps.Notifier.Deactivated(next)
}

// drain moves hook-thread failures into the log. The hook thread only
// ever does a non-blocking send.
func (s *Session) drain(ctx context.Context, ic *Interceptor, panics <-chan any, done chan<- struct{}) {
	defer close(done)
	failures := ic.Failures()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-failures:
			s.logger.Warn("synthesis failed",
				"source", keys.Name(f.Source),
				"dest", keys.Name(f.Dest),
				"direction", f.Dir.String(),
				"error", f.Err,
			)
			if s.failureNotified.CompareAndSwap(false, true) {
				s.deps.Notifier.Error(f)
			}
		case r := <-panics:
			err := fmt.Errorf("keyboard hook recovered from panic: %v", r)
			s.logger.Error("hook panic", "error", err)
			s.deps.Notifier.Error(err)
		}
	}
}
