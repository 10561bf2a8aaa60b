package missingfonts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName  = "org.freedesktop.Notifications"
	notificationsPath  = dbus.ObjectPath("/org/freedesktop/Notifications")
	notificationsIface = "org.freedesktop.Notifications"
	notificationIcon   = "preferences-desktop-font"

	signalActionInvoked      = notificationsIface + ".ActionInvoked"
	signalNotificationClosed = notificationsIface + ".NotificationClosed"
)

var errNotificationBusClosed = errors.New("notification bus connection closed")

// Notification action keys and labels, alternating.
var (
	alertActions  = []string{"default", "Details", "details", "Details"}
	dialogActions = []string{"install", "Install", "ignore", "Always ignore", "cancel", "Cancel"}
)

// NotificationBus is the subset of the freedesktop notification service that
// DesktopWindows needs.
type NotificationBus interface {
	// Show opens a notification, or replaces notification replaces when it
	// is not zero, and returns its id.
	Show(replaces uint32, summary, body string, actions []string) (uint32, error)
	Dismiss(id uint32) error
	// Signals delivers ActionInvoked and NotificationClosed.
	Signals() <-chan *dbus.Signal
	Close() error
}

type dbusNotifications struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	ch   chan *dbus.Signal
}

// ConnectNotifications opens the notification service on the session bus, or
// on the bus connect returns when it is not nil.
func ConnectNotifications(ctx context.Context, connect func() (*dbus.Conn, error)) (NotificationBus, error) {
	if connect == nil {
		connect = func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }
	}
	conn, err := connect()
	if err != nil {
		return nil, fmt.Errorf("connecting to session bus: %w", err)
	}
	if !busNameAvailable(ctx, conn, notificationsName) {
		conn.Close()
		return nil, fmt.Errorf("%s is not available", notificationsName)
	}
	err = conn.AddMatchSignal(
		dbus.WithMatchObjectPath(notificationsPath),
		dbus.WithMatchInterface(notificationsIface),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribing to notification signals: %w", err)
	}
	n := &dbusNotifications{
		conn: conn,
		obj:  conn.Object(notificationsName, notificationsPath),
		ch:   make(chan *dbus.Signal, 16),
	}
	conn.Signal(n.ch)
	return n, nil
}

func (n *dbusNotifications) Show(replaces uint32, summary, body string, actions []string) (uint32, error) {
	hints := map[string]dbus.Variant{}
	expire := int32(-1)
	if len(actions) > 0 {
		hints["resident"] = dbus.MakeVariant(true)
		expire = 0
	}
	if actions == nil {
		actions = []string{}
	}
	var id uint32
	err := n.obj.Call(notificationsIface+".Notify", 0,
		appName, replaces, notificationIcon, summary, body, actions, hints, expire).Store(&id)
	return id, err
}

func (n *dbusNotifications) Dismiss(id uint32) error {
	return n.obj.Call(notificationsIface+".CloseNotification", 0, id).Err
}

func (n *dbusNotifications) Signals() <-chan *dbus.Signal { return n.ch }

func (n *dbusNotifications) Close() error {
	n.conn.RemoveSignal(n.ch)
	return n.conn.Close()
}

// DesktopWindows shows the alert and the dialog as desktop notifications with
// action buttons. Run turns the replies into events.
type DesktopWindows struct {
	Sink EventSink
	Bus  NotificationBus

	mu     sync.Mutex
	alert  *desktopWindow
	dialog *desktopWindow
}

type desktopWindow struct {
	d    *DesktopWindows
	kind WindowKind
	id   uint32
}

// Run dispatches notification signals until ctx is done, then closes the bus.
func (d *DesktopWindows) Run(ctx context.Context) error {
	defer d.Bus.Close()
	signals := d.Bus.Signals()
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return errNotificationBusClosed
			}
			d.handleSignal(sig)
		}
	}
}

func (d *DesktopWindows) byID(id uint32) *desktopWindow {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.alert != nil && d.alert.id == id:
		return d.alert
	case d.dialog != nil && d.dialog.id == id:
		return d.dialog
	}
	return nil
}

// detach drops w from its slot and reports whether it was still there.
func (d *DesktopWindows) detach(w *desktopWindow) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case w.kind == KindAlert && d.alert == w:
		d.alert = nil
	case w.kind == KindDialog && d.dialog == w:
		d.dialog = nil
	default:
		return false
	}
	return true
}

func (d *DesktopWindows) handleSignal(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}
	w := d.byID(id)
	if w == nil {
		return
	}

	switch sig.Name {
	case signalActionInvoked:
		key, _ := sig.Body[1].(string)
		e, ok := w.action(key)
		if !ok {
			debugf("Ignoring notification action %q\n", key)
			return
		}
		if !d.detach(w) {
			return
		}
		// resident notifications stay up after an action
		if err := d.Bus.Dismiss(id); err != nil {
			debugf("Closing notification %d failed: %v\n", id, err)
		}
		d.Sink.Post(e)
	case signalNotificationClosed:
		if d.detach(w) {
			d.Sink.Post(w.closedEvent())
		}
	}
}

func (w *desktopWindow) action(key string) (Event, bool) {
	if w.kind == KindAlert {
		if key == "default" || key == "details" {
			return AlertClicked{}, true
		}
		return nil, false
	}
	switch key {
	case "install":
		return DialogFinished{Choice: ChoiceAccept}, true
	case "ignore":
		return DialogFinished{Choice: ChoiceAlwaysIgnore}, true
	case "cancel":
		return DialogFinished{Choice: ChoiceCancel}, true
	}
	return nil, false
}

func (w *desktopWindow) closedEvent() Event {
	if w.kind == KindDialog {
		return DialogClosed{Window: w}
	}
	return AlertClosed{Window: w}
}

func (w *desktopWindow) Close() {
	if !w.d.detach(w) {
		return
	}
	if err := w.d.Bus.Dismiss(w.id); err != nil {
		debugf("Closing notification %d failed: %v\n", w.id, err)
	}
	go w.d.Sink.Post(w.closedEvent())
}

func (w *desktopWindow) Update(scripts []string) {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	if w.d.dialog != w {
		return
	}
	id, err := w.d.Bus.Show(w.id, alertTitle, dialogText(scripts), dialogActions)
	if err != nil {
		debugf("Updating notification %d failed: %v\n", w.id, err)
		return
	}
	w.id = id
}

// show opens a notification and registers it in the slot for kind. The lock
// is held across the call so a reply signal cannot miss the new id.
func (d *DesktopWindows) show(kind WindowKind, summary, body string, actions []string) (*desktopWindow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, err := d.Bus.Show(0, summary, body, actions)
	if err != nil {
		return nil, fmt.Errorf("showing notification: %w", err)
	}
	w := &desktopWindow{d: d, kind: kind, id: id}
	if kind == KindDialog {
		d.dialog = w
	} else {
		d.alert = w
	}
	return w, nil
}

func (d *DesktopWindows) ShowAlert(title, body string) (Window, error) {
	w, err := d.show(KindAlert, title, body, alertActions)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (d *DesktopWindows) ShowDialog(scripts []string) (Dialog, error) {
	w, err := d.show(KindDialog, alertTitle, dialogText(scripts), dialogActions)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (d *DesktopWindows) CloseAll(kind WindowKind) {
	d.mu.Lock()
	w := d.alert
	if kind == KindDialog {
		w = d.dialog
	}
	d.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

// Notify shows a plain notification without actions.
func (d *DesktopWindows) Notify(title, message string) {
	if message == "" {
		return
	}
	if _, err := d.Bus.Show(0, title, message, nil); err != nil {
		debugf("Desktop notification failed: %v\n", err)
	}
}
