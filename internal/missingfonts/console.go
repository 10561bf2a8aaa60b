package missingfonts

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConsoleWindows renders the alert and dialog as prompts on a plain terminal.
// Run reads answers from In; the dialog gets the line when one is open,
// otherwise any line clicks the alert.
type ConsoleWindows struct {
	In   io.Reader
	Out  io.Writer
	Sink EventSink

	mu     sync.Mutex
	alert  *consoleWindow
	dialog *consoleWindow
}

func NewConsoleWindows(in io.Reader, out io.Writer, sink EventSink) *ConsoleWindows {
	return &ConsoleWindows{In: in, Out: out, Sink: sink}
}

type consoleWindow struct {
	c    *ConsoleWindows
	kind WindowKind
}

// Close reports the prompt closed unless it was already answered or closed.
func (w *consoleWindow) Close() {
	if w.c.forget(w) {
		w.c.postClosed(w)
	}
}

func (w *consoleWindow) Update(scripts []string) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	if w.c.dialog == w {
		w.c.printDialog(scripts)
	}
}

// forget detaches w and reports whether it was still open.
func (c *ConsoleWindows) forget(w *consoleWindow) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	open := false
	if c.alert == w {
		c.alert = nil
		open = true
	}
	if c.dialog == w {
		c.dialog = nil
		open = true
	}
	return open
}

func (c *ConsoleWindows) postClosed(w *consoleWindow) {
	if w.kind == KindDialog {
		c.Sink.Post(DialogClosed{Window: w})
		return
	}
	c.Sink.Post(AlertClosed{Window: w})
}

func (c *ConsoleWindows) ShowAlert(title, body string) (Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &consoleWindow{c: c, kind: KindAlert}
	c.alert = w
	fmt.Fprintf(c.Out, "\n[!] %s: %s\n", title, body)
	fmt.Fprint(c.Out, "Press Enter for details: ")
	return w, nil
}

func (c *ConsoleWindows) ShowDialog(scripts []string) (Dialog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &consoleWindow{c: c, kind: KindDialog}
	c.dialog = w
	c.printDialog(scripts)
	return w, nil
}

func (c *ConsoleWindows) printDialog(scripts []string) {
	fmt.Fprintf(c.Out, "\nFonts are missing for: %s\n", strings.Join(scripts, ", "))
	fmt.Fprint(c.Out, "[I]nstall, [a]lways ignore, [c]ancel: ")
}

func (c *ConsoleWindows) CloseAll(kind WindowKind) {
	c.mu.Lock()
	w := c.alert
	if kind == KindDialog {
		w = c.dialog
	}
	c.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

// parseAnswer maps a dialog answer to a choice.
func parseAnswer(s string) (Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "i", "install", "y", "yes":
		return ChoiceAccept, true
	case "a", "always", "ignore":
		return ChoiceAlwaysIgnore, true
	case "c", "cancel", "n", "no":
		return ChoiceCancel, true
	}
	return ChoiceCancel, false
}

// handleLine routes one input line to the open window.
func (c *ConsoleWindows) handleLine(line string) {
	c.mu.Lock()
	if c.dialog != nil {
		choice, ok := parseAnswer(line)
		if !ok {
			fmt.Fprint(c.Out, "Invalid input. [I]nstall, [a]lways ignore, [c]ancel: ")
			c.mu.Unlock()
			return
		}
		c.dialog = nil
		c.mu.Unlock()
		c.Sink.Post(DialogFinished{Choice: choice})
		return
	}
	if c.alert != nil {
		c.alert = nil
		c.mu.Unlock()
		c.Sink.Post(AlertClicked{})
		return
	}
	c.mu.Unlock()
	debugf("No prompt open, ignoring input %q\n", line)
}

// Run reads input until ctx is done or In hits EOF.
func (c *ConsoleWindows) Run(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(c.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			c.handleLine(line)
		}
	}
}
