package missingfonts

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gookit/color"
)

// color-compatible printer interface (works with *color.Theme and *color.Style)
type colorPrinter interface {
	Printf(format string, a ...any)
	Println(a ...any)
}

// cPrintf prints with a colored style or falls back to plain output when nil
func cPrintf(p colorPrinter, format string, a ...any) {
	if p == nil {
		fmt.Fprintf(logOutput, format, a...)
		return
	}
	p.Printf(format, a...)
}

// cPrintln prints a line with the given style or falls back to plain output when nil
func cPrintln(p colorPrinter, a ...any) {
	if p == nil {
		fmt.Fprintln(logOutput, a...)
		return
	}
	p.Println(a...)
}

// arrowf prints the "-> " progress prefix followed by a styled message.
func arrowf(p colorPrinter, format string, a ...any) {
	colArrow.Print("-> ")
	cPrintf(p, format, a...)
}

// debugf prints debug messages when Debug is true
func debugf(format string, args ...any) {
	if Debug {
		fmt.Fprintf(logOutput, format, args...)
	}
}

// setLogOutput redirects colored output, the std logger and debugf to w.
func setLogOutput(w io.Writer) {
	logOutput = w
	color.SetOutput(w)
	log.SetOutput(w)
}

// splitList splits a comma-separated list, trimming blanks and dropping empty
// entries. "a,,b," yields [a b].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
