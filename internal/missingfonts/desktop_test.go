package missingfonts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shownNotification struct {
	id       uint32
	replaces uint32
	summary  string
	body     string
	actions  []string
}

// fakeNotificationBus stands in for the session bus notification service.
type fakeNotificationBus struct {
	mu        sync.Mutex
	next      uint32
	shown     []shownNotification
	dismissed []uint32
	closed    bool
	showErr   error
	signals   chan *dbus.Signal
}

func newFakeNotificationBus() *fakeNotificationBus {
	return &fakeNotificationBus{signals: make(chan *dbus.Signal, 8)}
}

func (b *fakeNotificationBus) Show(replaces uint32, summary, body string, actions []string) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.showErr != nil {
		return 0, b.showErr
	}
	id := replaces
	if id == 0 {
		b.next++
		id = b.next
	}
	b.shown = append(b.shown, shownNotification{id: id, replaces: replaces, summary: summary, body: body, actions: actions})
	return id, nil
}

func (b *fakeNotificationBus) Dismiss(id uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dismissed = append(b.dismissed, id)
	return nil
}

func (b *fakeNotificationBus) Signals() <-chan *dbus.Signal { return b.signals }

func (b *fakeNotificationBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeNotificationBus) Shown() []shownNotification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]shownNotification(nil), b.shown...)
}

func (b *fakeNotificationBus) Dismissed() []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint32(nil), b.dismissed...)
}

func (b *fakeNotificationBus) invoke(id uint32, key string) {
	b.signals <- &dbus.Signal{Name: signalActionInvoked, Body: []interface{}{id, key}}
}

func (b *fakeNotificationBus) closeNotification(id uint32) {
	b.signals <- &dbus.Signal{Name: signalNotificationClosed, Body: []interface{}{id, uint32(2)}}
}

func runDesktopWindows(t *testing.T, d *DesktopWindows) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestDesktopAlertActionPostsClick(t *testing.T) {
	bus := newFakeNotificationBus()
	sink := &eventLog{}
	d := &DesktopWindows{Sink: sink, Bus: bus}
	runDesktopWindows(t, d)

	w, err := d.ShowAlert(alertTitle, alertBody)
	require.NoError(t, err)
	shown := bus.Shown()
	require.Len(t, shown, 1)
	assert.Equal(t, alertActions, shown[0].actions)

	bus.invoke(shown[0].id, "details")
	assert.Equal(t, []Event{AlertClicked{}}, waitEvents(t, sink, 1))
	assert.Equal(t, []uint32{shown[0].id}, bus.Dismissed())

	// closing after the click neither dismisses again nor posts
	w.Close()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.All(), 1)
	assert.Len(t, bus.Dismissed(), 1)
}

func TestDesktopDialogActions(t *testing.T) {
	for key, want := range map[string]Choice{
		"install": ChoiceAccept,
		"ignore":  ChoiceAlwaysIgnore,
		"cancel":  ChoiceCancel,
	} {
		bus := newFakeNotificationBus()
		sink := &eventLog{}
		d := &DesktopWindows{Sink: sink, Bus: bus}
		runDesktopWindows(t, d)

		_, err := d.ShowDialog([]string{"Greek"})
		require.NoError(t, err)
		bus.invoke(bus.Shown()[0].id, key)

		assert.Equal(t, []Event{DialogFinished{Choice: want}}, waitEvents(t, sink, 1), key)
	}
}

func TestDesktopDismissedNotificationPostsClosed(t *testing.T) {
	bus := newFakeNotificationBus()
	sink := &eventLog{}
	d := &DesktopWindows{Sink: sink, Bus: bus}
	runDesktopWindows(t, d)

	dlg, err := d.ShowDialog([]string{"Greek"})
	require.NoError(t, err)

	// unknown ids and actions are ignored
	bus.invoke(99, "install")
	bus.invoke(bus.Shown()[0].id, "default")
	bus.closeNotification(bus.Shown()[0].id)

	assert.Equal(t, []Event{DialogClosed{Window: dlg}}, waitEvents(t, sink, 1))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, sink.All(), 1)
}

func TestDesktopDialogUpdateReplacesNotification(t *testing.T) {
	bus := newFakeNotificationBus()
	d := &DesktopWindows{Sink: &eventLog{}, Bus: bus}

	dlg, err := d.ShowDialog([]string{"Greek"})
	require.NoError(t, err)
	dlg.Update([]string{"Greek", "Hebrew"})

	shown := bus.Shown()
	require.Len(t, shown, 2)
	assert.Equal(t, shown[0].id, shown[1].replaces)
	assert.Contains(t, shown[1].body, "Greek, Hebrew")
}

func TestDesktopCloseIsIdempotent(t *testing.T) {
	bus := newFakeNotificationBus()
	sink := &eventLog{}
	d := &DesktopWindows{Sink: sink, Bus: bus}

	w, err := d.ShowAlert(alertTitle, alertBody)
	require.NoError(t, err)
	w.Close()
	d.CloseAll(KindAlert)
	w.Close()

	assert.Equal(t, []Event{AlertClosed{Window: w}}, waitEvents(t, sink, 1))
	assert.Len(t, bus.Dismissed(), 1)
}

func TestDesktopShowFailure(t *testing.T) {
	bus := newFakeNotificationBus()
	bus.showErr = errors.New("service gone")
	d := &DesktopWindows{Sink: &eventLog{}, Bus: bus}

	w, err := d.ShowAlert(alertTitle, alertBody)
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestDesktopRunClosesBus(t *testing.T) {
	bus := newFakeNotificationBus()
	d := &DesktopWindows{Sink: &eventLog{}, Bus: bus}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.True(t, bus.closed)

	gone := newFakeNotificationBus()
	close(gone.signals)
	assert.ErrorIs(t, (&DesktopWindows{Bus: gone}).Run(context.Background()), errNotificationBusClosed)
}

func TestDesktopWindowsDriveApp(t *testing.T) {
	bus := newFakeNotificationBus()
	sink := &eventLog{}
	d := &DesktopWindows{Sink: sink, Bus: bus}
	runDesktopWindows(t, d)

	installer := &fakeInstaller{available: true}
	app := NewApp(context.Background(), Deps{
		Settings: Settings{PackageKitNames: []string{"fedora"}},
		Catalog: mapCatalog{
			"Grek": {Packages: map[string]string{"fedora": "google-noto-sans-fonts"}},
			"Cyrl": {Packages: map[string]string{"fedora": "dejavu-sans-fonts"}},
		},
		Windows:   d,
		Installer: installer,
		Notifier:  &recordingNotifier{},
	})
	t.Cleanup(app.Close)

	app.Handle(FontNeeded{Scripts: []string{"Grek"}})
	app.Handle(FontNeeded{Scripts: []string{"Cyrl"}})
	require.Len(t, bus.Shown(), 1, "the open alert absorbs the second report")

	bus.invoke(bus.Shown()[0].id, "default")
	for _, e := range waitEvents(t, sink, 1) {
		app.Handle(e)
	}
	assert.Equal(t, UIDialogShown, app.dispatcher.State())
	shown := bus.Shown()
	require.Len(t, shown, 2)
	assert.Contains(t, shown[1].body, "Greek, Cyrillic")

	bus.invoke(shown[1].id, "install")
	for _, e := range waitEvents(t, sink, 2)[1:] {
		app.Handle(e)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.waitIdle(ctx))

	assert.Equal(t, [][]string{{"google-noto-sans-fonts", "dejavu-sans-fonts"}}, installer.Calls())
	assert.Empty(t, app.tracker.CurrentlyNotified())
}
