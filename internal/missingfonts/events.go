package missingfonts

import (
	"fmt"
	"strings"
)

// Event is anything the App loop reacts to. Window managers, the host socket
// and backend goroutines only ever Post events; all state changes happen on
// the loop.
type Event interface {
	event()
}

// FontNeeded: the host could not render characters of these scripts.
type FontNeeded struct {
	Scripts []string
}

// AlertClicked: the user clicked the alert.
type AlertClicked struct{}

// AlertClosed: the alert window went away without a click.
type AlertClosed struct {
	Window Window
}

// DialogFinished: the user picked a button in the dialog.
type DialogFinished struct {
	Choice Choice
}

// DialogClosed: the dialog went away without a choice.
type DialogClosed struct {
	Window Window
}

// TransactionFinished: the installer returned for Packages.
type TransactionFinished struct {
	Packages []string
	Err      error
}

// DownloadFinished: a download task completed.
type DownloadFinished struct {
	URL  string
	Path string
	Err  error
}

func (FontNeeded) event()          {}
func (AlertClicked) event()        {}
func (AlertClosed) event()         {}
func (DialogFinished) event()      {}
func (DialogClosed) event()        {}
func (TransactionFinished) event() {}
func (DownloadFinished) event()    {}

// Choice is the dialog result.
type Choice int

const (
	ChoiceCancel Choice = iota
	ChoiceAccept
	ChoiceAlwaysIgnore
)

func (c Choice) String() string {
	switch c {
	case ChoiceAccept:
		return "accept"
	case ChoiceAlwaysIgnore:
		return "alwaysignore"
	}
	return "cancel"
}

// ParseChoice accepts the dialog result names used on the wire.
func ParseChoice(s string) (Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept":
		return ChoiceAccept, true
	case "alwaysignore":
		return ChoiceAlwaysIgnore, true
	case "cancel":
		return ChoiceCancel, true
	}
	return ChoiceCancel, false
}

// EventSink receives events.
type EventSink interface {
	Post(e Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Post(e Event) { f(e) }

const hostMessagePrefix = "MissingFontsNotifier:"

// ParseHostMessage decodes one line sent by a host process, e.g.
// "MissingFontsNotifier:font-needed Grek,Cyrl". The prefix is optional.
func ParseHostMessage(line string) (Event, error) {
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), hostMessagePrefix))
	topic, data, _ := strings.Cut(line, " ")
	if topic == "font-needed" {
		return FontNeeded{Scripts: splitList(data)}, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownMessage, topic)
}

// FormatFontNeeded is the inverse of ParseHostMessage for FontNeeded.
func FormatFontNeeded(scripts []string) string {
	return hostMessagePrefix + "font-needed " + strings.Join(scripts, ",")
}
