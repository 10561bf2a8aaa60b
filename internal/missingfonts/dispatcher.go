package missingfonts

// WindowKind distinguishes the two window types.
type WindowKind int

const (
	KindAlert WindowKind = iota
	KindDialog
)

func (k WindowKind) String() string {
	if k == KindDialog {
		return "dialog"
	}
	return "alert"
}

// Window is an open alert or dialog. Close is idempotent; closing a window
// that was not already closed posts AlertClosed or DialogClosed.
type Window interface {
	Close()
}

// Dialog is a window whose script list can be refreshed.
type Dialog interface {
	Window
	Update(scripts []string)
}

// WindowManager opens windows. Window callbacks arrive as events on the sink
// the manager was built with.
type WindowManager interface {
	ShowAlert(title, body string) (Window, error)
	ShowDialog(scripts []string) (Dialog, error)
	CloseAll(kind WindowKind)
}

// UIState is the visible state of the dispatcher.
type UIState int

const (
	UIIdle UIState = iota
	UIAlertShown
	UIDialogShown
)

func (s UIState) String() string {
	switch s {
	case UIAlertShown:
		return "alert"
	case UIDialogShown:
		return "dialog"
	}
	return "idle"
}

// Decision is what the dialog result asks the App to do.
type Decision struct {
	Choice   Choice
	Accepted []string // scripts moved to Processed, for ChoiceAccept
}

// Dispatcher decides which window to show for newly missing scripts and turns
// dialog results into tracker transitions. It never persists anything itself.
//
// While an alert is shown, newly missing scripts are recorded but the alert is
// left untouched; the user sees them once the dialog opens.
type Dispatcher struct {
	tracker *Tracker
	windows WindowManager
	names   *ScriptNamer

	alert  Window
	dialog Dialog
}

func NewDispatcher(tracker *Tracker, windows WindowManager, names *ScriptNamer) *Dispatcher {
	return &Dispatcher{tracker: tracker, windows: windows, names: names}
}

// State reports which window is visible.
func (d *Dispatcher) State() UIState {
	switch {
	case d.dialog != nil:
		return UIDialogShown
	case d.alert != nil:
		return UIAlertShown
	}
	return UIIdle
}

func (d *Dispatcher) notifiedNames() []string {
	return d.names.Names(d.tracker.CurrentlyNotified())
}

// FontMissing reacts to scripts that RecordMissing reported as new.
func (d *Dispatcher) FontMissing(newScripts []string) {
	if len(newScripts) == 0 {
		return
	}
	switch d.State() {
	case UIDialogShown:
		d.dialog.Update(d.notifiedNames())
	case UIAlertShown:
		debugf("Alert already shown, holding %v until it is clicked\n", newScripts)
	case UIIdle:
		w, err := d.windows.ShowAlert(alertTitle, alertBody)
		if err != nil {
			colArrow.Print("-> ")
			colError.Printf("Failed to open alert: %v\n", err)
			return
		}
		d.alert = w
	}
}

// AlertClicked closes the alert and opens the dialog with every Notified
// script. A click arriving with no alert and nothing Notified is dropped.
func (d *Dispatcher) AlertClicked() {
	if d.alert == nil && len(d.tracker.CurrentlyNotified()) == 0 {
		debugf("Ignoring alert click, nothing to show\n")
		return
	}
	if d.alert != nil {
		w := d.alert
		d.alert = nil
		w.Close()
	}
	if d.dialog != nil {
		return
	}
	dlg, err := d.windows.ShowDialog(d.notifiedNames())
	if err != nil {
		colArrow.Print("-> ")
		colError.Printf("Failed to open dialog: %v\n", err)
		return
	}
	d.dialog = dlg
}

// DialogFinished applies the user's choice. The dialog has closed itself.
func (d *Dispatcher) DialogFinished(choice Choice) Decision {
	if d.dialog == nil {
		debugf("Ignoring %s result, no dialog open\n", choice)
		return Decision{Choice: ChoiceCancel}
	}
	d.dialog = nil

	switch choice {
	case ChoiceAlwaysIgnore:
		d.tracker.IgnoreAll()
		return Decision{Choice: choice}
	case ChoiceAccept:
		return Decision{Choice: choice, Accepted: d.tracker.TakeNotified()}
	}
	return Decision{Choice: ChoiceCancel}
}

// WindowClosed forgets w if it is the current alert or dialog. A dialog closed
// this way counts as cancel.
func (d *Dispatcher) WindowClosed(w Window) {
	if w == nil {
		return
	}
	if d.alert != nil && d.alert == w {
		d.alert = nil
	}
	if d.dialog != nil && Window(d.dialog) == w {
		d.dialog = nil
	}
}

// Teardown closes every window and returns to Idle.
func (d *Dispatcher) Teardown() {
	d.alert = nil
	d.dialog = nil
	d.windows.CloseAll(KindAlert)
	d.windows.CloseAll(KindDialog)
}
