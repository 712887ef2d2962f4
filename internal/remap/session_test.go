package remap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyremapd/internal/keys"
	"keyremapd/internal/platform"
)

type sessionFixture struct {
	inj      *fakeInjector
	res      *fakeResolver
	hooks    *hookFactory
	notifier *recordingNotifier
	session  *Session
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		inj:      newFakeInjector(),
		res:      &fakeResolver{},
		hooks:    &hookFactory{},
		notifier: &recordingNotifier{},
	}
	f.res.set(10, "notepad")
	f.session = NewSession(Deps{
		Injector:    f.inj,
		Resolver:    f.res,
		InstallHook: f.hooks.install,
		Notifier:    f.notifier,
	})
	t.Cleanup(func() { _ = f.session.Uninstall() })
	return f
}

func defaultOptions() Options {
	return Options{Target: "notepad", FocusInterval: time.Hour}
}

func TestSessionInstallAndRemap(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT", "1", "E"), defaultOptions()))

	hook := f.hooks.last()
	require.NotNil(t, hook)
	assert.True(t, f.session.Installed())

	assert.True(t, hook.send(platform.WMKeyDown, vkA), "target is focused from the first check")
	assert.True(t, hook.send(platform.WMKeyUp, vkA))
	assert.Len(t, f.inj.Posted(), 2)

	assert.True(t, hook.send(platform.WMKeyDown, vkOne))
	assert.True(t, hook.send(platform.WMKeyUp, vkOne))
	assert.Len(t, f.inj.Inputs(), 2)

	assert.False(t, hook.send(platform.WMKeyDown, vkQ))

	st := f.session.Status()
	assert.True(t, st.Installed)
	assert.Equal(t, 2, st.Mappings)
	assert.True(t, st.Focus.Active)
	assert.Equal(t, uint64(4), st.Stats.Remapped)

	activated, _, _ := f.notifier.counts()
	assert.Equal(t, 1, activated)
}

func TestSessionInstallFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.hooks.err = errBoom
	// the notifier may inspect the session while it reports
	f.notifier.onError = func() { _ = f.session.Status() }

	done := make(chan error, 1)
	go func() {
		done <- f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions())
	}()
	var err error
	select {
	case err = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Install blocked while notifying")
	}
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, f.session.Installed())

	_, _, errs := f.notifier.counts()
	assert.Equal(t, 1, errs)

	// the process keeps running; a reload retries the install
	f.hooks.err = nil
	require.NoError(t, f.session.Reload(mustTable("A", "LEFT"), defaultOptions()))
	assert.True(t, f.session.Installed())
}

func TestSessionDoubleInstall(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))
	assert.ErrorIs(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()), ErrAlreadyInstalled)
}

func TestInstallingSecondSessionTearsDownFirst(t *testing.T) {
	first := newSessionFixture(t)
	second := newSessionFixture(t)

	require.NoError(t, first.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))
	firstHook := first.hooks.last()
	firstHook.send(platform.WMKeyDown, vkA)

	require.NoError(t, second.session.Install(context.Background(), mustTable("A", "UP"), defaultOptions()))

	assert.True(t, firstHook.closed.Load())
	assert.False(t, first.session.Installed())
	assert.True(t, second.session.Installed())
	assert.Len(t, first.inj.Posted(), 2, "held key was released on teardown")
}

func TestSessionUninstall(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))
	hook := f.hooks.last()
	hook.send(platform.WMKeyDown, vkA)

	require.NoError(t, f.session.Uninstall())
	assert.True(t, hook.closed.Load())
	assert.Equal(t, 0, f.session.Status().Pressed)

	posted := f.inj.Posted()
	require.Len(t, posted, 2)
	assert.Equal(t, uint32(platform.WMKeyUp), posted[1].message)

	assert.ErrorIs(t, f.session.Uninstall(), ErrNotInstalled)
}

func TestSessionReload(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))
	hook := f.hooks.last()

	hook.send(platform.WMKeyDown, vkA)
	require.NoError(t, f.session.Reload(mustTable("D", "RIGHT"), defaultOptions()))

	assert.Same(t, hook, f.hooks.last(), "reload keeps the hook")
	posted := f.inj.Posted()
	require.Len(t, posted, 2)
	assert.Equal(t, uintptr(keys.Left), posted[1].wParam)
	assert.Equal(t, uint32(platform.WMKeyUp), posted[1].message)

	assert.False(t, hook.send(platform.WMKeyUp, vkA), "A is unmapped after reload")
	assert.True(t, hook.send(platform.WMKeyDown, vkD))
}

func TestSessionReloadChangesTarget(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))
	require.True(t, f.session.Status().Focus.Active)

	opts := defaultOptions()
	opts.Target = "wordpad"
	require.NoError(t, f.session.Reload(mustTable("A", "LEFT"), opts))

	st := f.session.Status()
	assert.False(t, st.Focus.Active)
	assert.Equal(t, "wordpad", st.Target)
	assert.False(t, f.hooks.last().send(platform.WMKeyDown, vkA))

	activated, deactivated, _ := f.notifier.counts()
	assert.Equal(t, 1, activated)
	assert.Equal(t, 1, deactivated, "leaving the old target is reported")

	f.res.set(30, "wordpad")
	f.session.focus.Check()
	activated, _, _ = f.notifier.counts()
	assert.Equal(t, 2, activated)
}

func TestSessionReloadSameTargetKeepsFocus(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))

	require.NoError(t, f.session.Reload(mustTable("A", "RIGHT"), defaultOptions()))
	_, deactivated, _ := f.notifier.counts()
	assert.Equal(t, 0, deactivated)
	assert.True(t, f.session.Status().Focus.Active)
}

func TestSessionFocusLossPolicy(t *testing.T) {
	for _, release := range []bool{false, true} {
		f := newSessionFixture(t)
		opts := defaultOptions()
		opts.ReleaseOnFocusLoss = release
		require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), opts))
		hook := f.hooks.last()

		hook.send(platform.WMKeyDown, vkA)
		f.res.set(20, "explorer")
		f.session.focus.Check()

		_, deactivated, _ := f.notifier.counts()
		assert.Equal(t, 1, deactivated)

		if release {
			assert.Len(t, f.inj.Posted(), 2, "focus loss releases held keys")
			assert.Equal(t, 0, f.session.Status().Pressed)
		} else {
			assert.Len(t, f.inj.Posted(), 1, "held keys survive focus loss")
			assert.Equal(t, 1, f.session.Status().Pressed)

			// the physical release arrives while inactive and is forwarded
			assert.False(t, hook.send(platform.WMKeyUp, vkA))
		}

		// back in the target: nothing is left held and a fresh press is
		// remapped exactly once
		f.res.set(10, "notepad")
		f.session.focus.Check()
		assert.Equal(t, 0, f.session.Status().Pressed)

		posted := f.inj.Posted()
		require.Len(t, posted, 2, "release=%v", release)
		assert.Equal(t, uint32(platform.WMKeyUp), posted[1].message)
		assert.Equal(t, uintptr(keys.Left), posted[1].wParam)

		assert.True(t, hook.send(platform.WMKeyDown, vkA))
		assert.True(t, hook.send(platform.WMKeyDown, vkA), "auto-repeat is suppressed")
		posted = f.inj.Posted()
		require.Len(t, posted, 3, "release=%v", release)
		assert.Equal(t, uint32(platform.WMKeyDown), posted[2].message)

		require.NoError(t, f.session.Uninstall())
	}
}

func TestSessionPause(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))
	hook := f.hooks.last()

	hook.send(platform.WMKeyDown, vkA)
	f.session.SetPaused(true)
	assert.True(t, f.session.Paused())
	assert.Len(t, f.inj.Posted(), 2, "pausing releases held keys")
	assert.False(t, hook.send(platform.WMKeyDown, vkA))

	f.session.SetPaused(false)
	assert.True(t, hook.send(platform.WMKeyDown, vkA))
}

func TestSessionReportsHookPanics(t *testing.T) {
	f := newSessionFixture(t)
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))

	f.hooks.last().opts.OnPanic("synthetic")
	assert.Eventually(t, func() bool {
		_, _, errs := f.notifier.counts()
		return errs == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSessionReportsSynthesisFailureOnce(t *testing.T) {
	f := newSessionFixture(t)
	f.inj.postErr = errBoom
	f.inj.sendErr = errBoom
	require.NoError(t, f.session.Install(context.Background(), mustTable("A", "LEFT"), defaultOptions()))
	hook := f.hooks.last()

	for i := 0; i < 3; i++ {
		hook.send(platform.WMKeyDown, vkA)
		hook.send(platform.WMKeyUp, vkA)
	}
	assert.Eventually(t, func() bool {
		return f.session.Status().Stats.Failures == 6
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	_, _, errs := f.notifier.counts()
	assert.Equal(t, 1, errs)
}
