package missingfonts

import (
	"os"
	"runtime"

	"github.com/gen2brain/beeep"
)

// Notifier shows a one-shot message that expects no reply.
type Notifier interface {
	Notify(title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

func (f NotifierFunc) Notify(title, message string) { f(title, message) }

// DesktopNotifier sends freedesktop/OS notifications through beeep.
type DesktopNotifier struct {
	Icon string
}

// Notify shows a desktop notification, best-effort and non-fatal.
func (n DesktopNotifier) Notify(title, message string) {
	if message == "" {
		return
	}
	// Skip on headless Linux without DISPLAY; beeep would error.
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		debugf("No display, skipping desktop notification %q\n", title)
		return
	}
	if err := beeep.Notify(title, message, n.Icon); err != nil {
		debugf("Desktop notification failed: %v\n", err)
	}
}

// loggingNotifier writes every notification to the console log before
// passing it on.
type loggingNotifier struct {
	next Notifier
}

func (n loggingNotifier) Notify(title, message string) {
	colArrow.Print("-> ")
	colWarn.Printf("%s - %s\n", title, message)
	if n.next != nil {
		n.next.Notify(title, message)
	}
}

// HeadlessWindows is the window manager used without a terminal when no
// notification service with actions is reachable. The alert becomes a plain
// desktop notification and closes right away, so the next missing script
// raises a new one; run `missingfonts fix` to act on them.
type HeadlessWindows struct {
	Sink     EventSink
	Notifier Notifier
}

type headlessWindow struct{}

func (*headlessWindow) Close()            {}
func (*headlessWindow) Update(_ []string) {}

func (h *HeadlessWindows) ShowAlert(title, body string) (Window, error) {
	w := &headlessWindow{}
	h.Notifier.Notify(title, body)
	go h.Sink.Post(AlertClosed{Window: w})
	return w, nil
}

func (h *HeadlessWindows) ShowDialog(_ []string) (Dialog, error) {
	w := &headlessWindow{}
	go h.Sink.Post(DialogClosed{Window: w})
	return w, nil
}

func (h *HeadlessWindows) CloseAll(WindowKind) {}
