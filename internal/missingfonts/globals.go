package missingfonts

import (
	"errors"
	"io"
	"os"

	"github.com/gookit/color"
)

// Global variables
var (
	Debug      bool
	ConfigFile = "/etc/missingfonts.conf"
	version    = "dev"     // overridden at build time
	buildDate  = "unknown" // overridden at build time

	// logOutput receives debug and plain log lines. The TUI swaps it for its
	// log pane so nothing is written underneath the screen.
	logOutput io.Writer = os.Stdout

	errNoInstaller      = errors.New("no package installer available")
	errChecksumMismatch = errors.New("checksum mismatch")
	errUnknownCommand   = errors.New("unknown command")
	errUnknownMessage   = errors.New("unknown host message")
)

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)

// Defaults of the packagekitnames and fontserver preferences.
var (
	defaultPackageKitNames = []string{"debian", "fedora"}
	defaultFontServer      = "https://fred-wang.github.io/mozilla-font-server/"
)

const (
	appName            = "missingfonts"
	alertTitle         = "Missing fonts"
	alertBody          = "A character could not be displayed. Click for details."
	noFontsAvailable   = "No fonts available for:"
	installFailedTitle = "Font installation failed"
	downloadDirName    = "MissingFontsNotifier"
)
