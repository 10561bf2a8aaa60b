package missingfonts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// TUIWindows shows the alert and the dialog as modals over a log pane.
type TUIWindows struct {
	Sink EventSink

	app     *tview.Application
	pages   *tview.Pages
	logView *tview.TextView
	stopped atomic.Bool

	// updates holds page changes made off the UI goroutine until Run hands
	// them to the application in order.
	updates chan func()

	mu     sync.Mutex
	alert  *tuiWindow
	dialog *tuiWindow
}

type tuiWindow struct {
	t     *TUIWindows
	kind  WindowKind
	modal *tview.Modal
}

func NewTUIWindows(sink EventSink) *TUIWindows {
	t := &TUIWindows{Sink: sink, app: tview.NewApplication(), updates: make(chan func(), 64)}

	header := tview.NewTextView().
		SetDynamicColors(true).
		SetText(fmt.Sprintf("[::b]%s[::-] %s  waiting for missing-font reports", appName, version))
	header.SetBorder(true)

	t.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			t.app.Draw()
		})
	t.logView.SetBorder(true).SetTitle("Log")

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetText("[yellow]q[-] quit  [yellow]Home/End[-] scroll")

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 3, 0, false).
		AddItem(t.logView, 0, 1, true).
		AddItem(footer, 1, 0, false)

	t.pages = tview.NewPages().AddPage("main", layout, true, true)

	t.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlQ {
			t.app.Stop()
			return nil
		}
		if front, _ := t.pages.GetFrontPage(); front == "main" && event.Rune() == 'q' {
			t.app.Stop()
			return nil
		}
		return event
	})
	return t
}

// Run draws the screen until ctx is done or the user quits. Log output goes
// to the log pane meanwhile.
func (t *TUIWindows) Run(ctx context.Context) error {
	setLogOutput(tview.ANSIWriter(t.logView))
	defer setLogOutput(os.Stdout)

	go func() {
		<-ctx.Done()
		t.app.Stop()
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-t.updates:
				t.app.QueueUpdateDraw(f)
			}
		}
	}()

	err := t.app.SetRoot(t.pages, true).Run()
	t.stopped.Store(true)
	return err
}

// queue schedules f on the UI goroutine in order without blocking.
func (t *TUIWindows) queue(f func()) {
	if t.stopped.Load() {
		return
	}
	select {
	case t.updates <- f:
	default:
		debugf("Terminal UI update queue full, dropping update\n")
	}
}

func pageName(kind WindowKind) string {
	return kind.String()
}

func (t *TUIWindows) show(w *tuiWindow) {
	t.queue(func() {
		t.pages.AddPage(pageName(w.kind), w.modal, true, true)
		t.app.SetFocus(w.modal)
	})
}

func (t *TUIWindows) removePage(w *tuiWindow) {
	t.pages.RemovePage(pageName(w.kind))
	t.app.SetFocus(t.pages)
}

// detach drops w from its slot and reports whether it was still there.
func (t *TUIWindows) detach(w *tuiWindow) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case w.kind == KindAlert && t.alert == w:
		t.alert = nil
	case w.kind == KindDialog && t.dialog == w:
		t.dialog = nil
	default:
		return false
	}
	return true
}

func (w *tuiWindow) closedEvent() Event {
	if w.kind == KindDialog {
		return DialogClosed{Window: w}
	}
	return AlertClosed{Window: w}
}

// result maps a modal button to its event. Index -1 is Escape.
func (w *tuiWindow) result(index int) Event {
	if w.kind == KindAlert {
		if index == 0 {
			return AlertClicked{}
		}
		return w.closedEvent()
	}
	switch index {
	case 0:
		return DialogFinished{Choice: ChoiceAccept}
	case 1:
		return DialogFinished{Choice: ChoiceAlwaysIgnore}
	case 2:
		return DialogFinished{Choice: ChoiceCancel}
	}
	return w.closedEvent()
}

// done is the modal's button handler and runs on the UI goroutine. The event
// is posted from another goroutine so a full event queue cannot stall drawing.
func (w *tuiWindow) done(index int, _ string) {
	if !w.t.detach(w) {
		return
	}
	w.t.removePage(w)
	go w.t.Sink.Post(w.result(index))
}

func (w *tuiWindow) Close() {
	if !w.t.detach(w) {
		return
	}
	w.t.queue(func() { w.t.removePage(w) })
	go w.t.Sink.Post(w.closedEvent())
}

func (w *tuiWindow) Update(scripts []string) {
	text := dialogText(scripts)
	w.t.queue(func() {
		w.modal.SetText(text)
	})
}

func dialogText(scripts []string) string {
	return "Fonts are missing for:\n\n" + strings.Join(scripts, ", ") +
		"\n\nInstall them now?"
}

func (t *TUIWindows) ShowAlert(title, body string) (Window, error) {
	if t.stopped.Load() {
		return nil, fmt.Errorf("terminal UI is not running")
	}
	w := &tuiWindow{t: t, kind: KindAlert}
	w.modal = tview.NewModal().
		SetText(title + "\n\n" + body).
		AddButtons([]string{"Details", "Dismiss"}).
		SetDoneFunc(w.done)

	t.mu.Lock()
	t.alert = w
	t.mu.Unlock()
	t.show(w)
	return w, nil
}

func (t *TUIWindows) ShowDialog(scripts []string) (Dialog, error) {
	if t.stopped.Load() {
		return nil, fmt.Errorf("terminal UI is not running")
	}
	w := &tuiWindow{t: t, kind: KindDialog}
	w.modal = tview.NewModal().
		SetText(dialogText(scripts)).
		AddButtons([]string{"Install", "Always ignore", "Cancel"}).
		SetDoneFunc(w.done)

	t.mu.Lock()
	t.dialog = w
	t.mu.Unlock()
	t.show(w)
	return w, nil
}

func (t *TUIWindows) CloseAll(kind WindowKind) {
	t.mu.Lock()
	w := t.alert
	if kind == KindDialog {
		w = t.dialog
	}
	t.mu.Unlock()
	if w != nil {
		w.Close()
	}
}
