package remap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFocusInterval is the focus polling period.
const DefaultFocusInterval = 2 * time.Second

// nameCacheTTL bounds how long a pid -> image name lookup is reused.
// Windows recycles process IDs.
const nameCacheTTL = 10 * time.Second

// ErrAlreadyRunning is returned when starting a monitor twice.
var ErrAlreadyRunning = errors.New("focus monitor already running")

// ProcessResolver identifies the process that owns the foreground window.
type ProcessResolver interface {
	ForegroundProcessID() (uint32, error)
	ProcessImageName(pid uint32) (string, error)
}

// FocusState is one published focus observation.
type FocusState struct {
	Active    bool
	PID       uint32
	Process   string
	CheckedAt time.Time
}

// FocusMonitor polls the foreground process and publishes whether it
// matches the target. Reads are lock-free; only the poll goroutine
// writes.
type FocusMonitor struct {
	resolver ProcessResolver
	logger   *slog.Logger

	state atomic.Pointer[FocusState]

	mu           sync.Mutex
	target       string
	interval     time.Duration
	cancel       context.CancelFunc
	done         chan struct{}
	onTransition func(prev, next FocusState)
	onActivating func()

	now func() time.Time

	cacheMu    sync.Mutex
	cachedPID  uint32
	cachedName string
	cachedAt   time.Time
}

// NewFocusMonitor returns a stopped monitor. Until started it reports
// inactive.
func NewFocusMonitor(resolver ProcessResolver, logger *slog.Logger) *FocusMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &FocusMonitor{
		resolver: resolver,
		logger:   logger.With("component", "focus"),
		now:      time.Now,
	}
	m.state.Store(&FocusState{})
	return m
}

// OnTransition registers fn to run on the poll goroutine whenever the
// active flag flips. It must be set before Start.
func (m *FocusMonitor) OnTransition(fn func(prev, next FocusState)) {
	m.mu.Lock()
	m.onTransition = fn
	m.mu.Unlock()
}

// OnActivating registers fn to run before an active observation that
// follows an inactive one is published. The hook keeps reading inactive
// until fn returns. It must be set before Start.
func (m *FocusMonitor) OnActivating(fn func()) {
	m.mu.Lock()
	m.onActivating = fn
	m.mu.Unlock()
}

// Start begins polling for target every interval. The first check runs
// before Start returns.
func (m *FocusMonitor) Start(ctx context.Context, target string, interval time.Duration) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	if interval <= 0 {
		interval = DefaultFocusInterval
	}
	m.target = normalizeTarget(target)
	m.interval = interval
	m.resetCache()

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.Check()
	go m.pollLoop(ctx, interval, m.done)

	m.logger.Info("focus monitor started", "target", target, "interval", interval)
	return nil
}

// Stop halts polling and publishes an inactive state. It does not fire
// the transition callback.
func (m *FocusMonitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.state.Store(&FocusState{CheckedAt: m.now()})
	m.logger.Info("focus monitor stopped")
}

// Active reports the last published result. Safe to call from the hook
// thread.
func (m *FocusMonitor) Active() bool {
	return m.state.Load().Active
}

// State returns the last published observation.
func (m *FocusMonitor) State() FocusState {
	return *m.state.Load()
}

// Target returns the normalized target name.
func (m *FocusMonitor) Target() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

func (m *FocusMonitor) pollLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check performs one observation and publishes it. Any resolution
// failure publishes inactive.
func (m *FocusMonitor) Check() FocusState {
	m.mu.Lock()
	target := m.target
	fn, activating := m.onTransition, m.onActivating
	m.mu.Unlock()

	next := FocusState{CheckedAt: m.now()}
	pid, name, err := m.resolve()
	if err != nil {
		m.logger.Debug("focus resolution failed", "error", err)
	} else {
		next.PID = pid
		next.Process = name
		next.Active = matchesTarget(name, target)
	}

	if next.Active && activating != nil && !m.state.Load().Active {
		activating()
	}
	prev := m.state.Swap(&next)
	if prev.Active != next.Active {
		m.logger.Debug("focus changed", "active", next.Active, "process", next.Process, "pid", next.PID)
		if fn != nil {
			fn(*prev, next)
		}
	}
	return next
}

func (m *FocusMonitor) resolve() (uint32, string, error) {
	pid, err := m.resolver.ForegroundProcessID()
	if err != nil {
		return 0, "", err
	}
	now := m.now()

	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	if pid == m.cachedPID && m.cachedName != "" && now.Sub(m.cachedAt) < nameCacheTTL {
		return pid, m.cachedName, nil
	}
	name, err := m.resolver.ProcessImageName(pid)
	if err != nil {
		m.cachedPID, m.cachedName = 0, ""
		return pid, "", err
	}
	m.cachedPID, m.cachedName, m.cachedAt = pid, name, now
	return pid, name, nil
}

func (m *FocusMonitor) resetCache() {
	m.cacheMu.Lock()
	m.cachedPID, m.cachedName, m.cachedAt = 0, "", time.Time{}
	m.cacheMu.Unlock()
}

func normalizeTarget(target string) string {
	t := strings.ToLower(strings.TrimSpace(target))
	return strings.TrimSuffix(t, ".exe")
}

// matchesTarget reports whether the process name contains target,
// ignoring case. An empty target never matches.
func matchesTarget(process, target string) bool {
	if target == "" || process == "" {
		return false
	}
	return strings.Contains(strings.ToLower(process), target)
}
