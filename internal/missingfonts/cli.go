package missingfonts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// printHelp prints the commands table
func printHelp() {
	colSuccess.Println("Usage: missingfonts [flags] <command> [arguments]")
	fmt.Println()
	color.Info.Println("Available Commands:")

	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"run", "", "Listen for missing-font reports and offer to install fonts (default)"},
		{"notify", "<Scr1,Scr2>", "Report missing scripts to the running daemon"},
		{"fix", "<script...>", "Install or download fonts for scripts without asking"},
		{"lookup", "<script...>", "Show the known remedy for scripts"},
		{"ignored", "[--clear]", "List or reset the always-ignored scripts"},
		{"version", "", "Version information"},
		{"help", "", "Show this help"},
	}

	maxLen := 0
	for _, c := range cmds {
		if n := len(c.Cmd) + len(c.Args) + 1; n > maxLen {
			maxLen = n
		}
	}
	columnWidth := maxLen + 4

	for _, c := range cmds {
		usage := c.Cmd
		if c.Args != "" {
			usage += " " + c.Args
		}
		fmt.Print("  ")
		color.Bold.Print(c.Cmd)
		if c.Args != "" {
			fmt.Print(" ")
			color.Cyan.Print(c.Args)
		}
		fmt.Print(strings.Repeat(" ", max(columnWidth-len(usage), 1)))
		color.Info.Println(c.Desc)
	}

	fmt.Println()
	color.Info.Println("Flags:")
	fmt.Println("  -d, --debug            Print debug output")
	fmt.Println("      --ui <mode>        auto, tui, console or headless")
	fmt.Println("      --socket <path>    Socket the daemon listens on")
	fmt.Println("      --config <file>    Read this config file instead of the defaults")
	fmt.Println()
}

func printVersion() {
	colSuccess.Printf("%s version %s (built %s)\n", appName, version, buildDate)
}

// Main is the CLI entrypoint for cmd/missingfonts.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.Usage = printHelp
	debug := flags.BoolP("debug", "d", false, "print debug output")
	uiMode := flags.String("ui", "", "window mode: auto, tui, console or headless")
	socket := flags.String("socket", "", "daemon socket path")
	configPath := flags.String("config", "", "config file")
	showVersion := flags.BoolP("version", "v", false, "print version")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		colError.Printf("Error: %v\n", err)
		return 2
	}
	if *debug {
		Debug = true
	}
	if *showVersion {
		printVersion()
		return 0
	}

	paths := configPaths()
	if *configPath != "" {
		paths = []string{*configPath}
	}
	cfg, err := loadConfig(paths...)
	if err != nil {
		log.Printf("Warning: %v", err)
	}
	prefs := NewFilePrefStore(cfg.get("MFN_STATE_DIR", defaultStateDir()))
	values, err := prefs.Load()
	if err != nil {
		log.Printf("Warning: %v", err)
	}
	applyPrefs(cfg, values)

	settings := initSettings(cfg)
	if *debug {
		Debug = true
	}
	if *uiMode != "" {
		settings.UI = strings.ToLower(*uiMode)
	}
	if *socket != "" {
		settings.SocketPath = *socket
	}

	command, rest := "run", flags.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	switch command {
	case "run":
		err = runDaemon(ctx, settings, prefs)
	case "notify":
		err = cmdNotify(ctx, settings, rest)
	case "fix":
		err = cmdFix(ctx, settings, prefs, rest)
	case "lookup":
		err = cmdLookup(settings, rest)
	case "ignored":
		err = cmdIgnored(settings, prefs, rest)
	case "version":
		printVersion()
	case "help":
		printHelp()
	default:
		err = fmt.Errorf("%w: %s", errUnknownCommand, command)
	}

	if err != nil {
		colError.Printf("Error: %v\n", err)
		if errors.Is(err, errUnknownCommand) {
			printHelp()
		}
		return 1
	}
	return 0
}

// chooseUI resolves "auto": the terminal UI when attached to a terminal,
// desktop notifications otherwise.
func chooseUI(mode string) string {
	switch mode {
	case "tui", "console", "headless":
		return mode
	case "auto", "":
	default:
		log.Printf("Warning: unknown UI mode %q, using auto", mode)
	}
	if term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())) {
		return "tui"
	}
	return "headless"
}

// newDeps wires the production collaborators. quiet hides download progress;
// interactive lets the install command prompt on the terminal.
func newDeps(s Settings, prefs PrefStore, windows WindowManager, notifier Notifier, quiet, interactive bool) Deps {
	fetcher := NewFontFetcher(s)
	fetcher.Quiet = quiet
	return Deps{
		Settings:   s,
		Prefs:      prefs,
		Catalog:    NewCatalog(s.CatalogPath),
		Windows:    windows,
		Installer:  newInstaller(s, interactive),
		Downloader: fetcher,
		Notifier:   notifier,
		Names:      NewScriptNamer(s.Lang),
	}
}

// runDaemon runs the event loop, the host socket and the chosen UI until ctx
// is done or the UI exits.
func runDaemon(ctx context.Context, s Settings, prefs PrefStore) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var app *App
	sink := SinkFunc(func(e Event) { app.Post(e) })
	var notifier Notifier = DesktopNotifier{}

	var windows WindowManager
	var runUI func(context.Context) error
	mode := chooseUI(s.UI)
	switch mode {
	case "tui":
		t := NewTUIWindows(sink)
		windows, runUI = t, t.Run
	case "console":
		c := NewConsoleWindows(os.Stdin, os.Stdout, sink)
		windows, runUI = c, c.Run
	default:
		bus, err := ConnectNotifications(ctx, nil)
		if err != nil {
			colArrow.Print("-> ")
			colWarn.Printf("Desktop notifications without buttons (%v); use `%s fix` to install fonts\n", err, appName)
			windows = &HeadlessWindows{Sink: sink, Notifier: notifier}
			break
		}
		d := &DesktopWindows{Sink: sink, Bus: bus}
		windows, runUI, notifier = d, d.Run, d
	}
	debugf("UI mode: %s\n", mode)

	app = NewApp(ctx, newDeps(s, prefs, windows, notifier, mode != "console", false))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Run(gctx)
	})
	g.Go(func() error {
		l := &SocketListener{Path: s.SocketPath, Sink: app}
		return l.Serve(gctx)
	})
	if runUI != nil {
		g.Go(func() error {
			defer cancel()
			return runUI(gctx)
		})
	}

	arrowf(colSuccess, "Listening for missing-font reports on %s\n", s.SocketPath)
	return g.Wait()
}

func scriptArgs(args []string) []string {
	return splitList(strings.Join(args, ","))
}

func cmdNotify(ctx context.Context, s Settings, args []string) error {
	scripts := scriptArgs(args)
	if len(scripts) == 0 {
		return errors.New("notify: no scripts given")
	}
	if err := SendFontNeeded(ctx, s.SocketPath, scripts); err != nil {
		return err
	}
	debugf("Sent font-needed %v\n", scripts)
	return nil
}

func cmdFix(ctx context.Context, s Settings, prefs PrefStore, args []string) error {
	scripts := scriptArgs(args)
	if len(scripts) == 0 {
		return errors.New("fix: no scripts given")
	}

	var app *App
	sink := SinkFunc(func(e Event) { app.Post(e) })
	windows := &HeadlessWindows{Sink: sink, Notifier: NotifierFunc(func(string, string) {})}
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	app = NewApp(ctx, newDeps(s, prefs, windows, DesktopNotifier{}, false, interactive))
	defer app.Close()

	plan, err := app.Fix(ctx, scripts)
	if err != nil {
		return err
	}
	if len(plan.Packages) == 0 && len(plan.Downloads) == 0 && len(plan.Unresolved) == 0 {
		arrowf(colInfo, "Nothing to do\n")
	}
	return nil
}

func cmdLookup(s Settings, args []string) error {
	scripts := scriptArgs(args)
	if len(scripts) == 0 {
		return errors.New("lookup: no scripts given")
	}
	catalog := NewCatalog(s.CatalogPath)
	if err := catalog.Err(); err != nil {
		return err
	}
	names := NewScriptNamer(s.Lang)

	for _, script := range scripts {
		colSuccess.Printf("%s", script)
		fmt.Printf(" (%s)\n", names.Name(script))
		remedy, ok := catalog.Lookup(script)
		if !ok {
			cPrintln(colWarn, "  no remedy known")
			continue
		}
		for _, manager := range slices.Sorted(maps.Keys(remedy.Packages)) {
			marker := ""
			if slices.Contains(s.PackageKitNames, manager) {
				marker = " *"
			}
			fmt.Printf("  %-8s %s%s\n", manager, remedy.Packages[manager], marker)
		}
		if remedy.Download != "" {
			if s.FontServer != "" {
				fmt.Printf("  %-8s %s\n", "download", fontURL(s.FontServer, remedy.Download))
			} else {
				fmt.Printf("  %-8s %s (font server disabled)\n", "download", remedy.Download)
			}
		}
	}
	return nil
}

func cmdIgnored(s Settings, prefs *FilePrefStore, args []string) error {
	flags := pflag.NewFlagSet("ignored", pflag.ContinueOnError)
	reset := flags.Bool("clear", false, "forget every ignored script")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *reset {
		if err := prefs.SaveIgnoreList(nil); err != nil {
			return err
		}
		arrowf(colSuccess, "Ignore list cleared\n")
		return nil
	}

	ignored, err := prefs.LoadIgnoreList()
	if err != nil {
		return err
	}
	if len(ignored) == 0 {
		cPrintln(colInfo, "No ignored scripts")
		return nil
	}
	names := NewScriptNamer(s.Lang)
	for _, script := range ignored {
		fmt.Printf("  %-6s %s\n", script, names.Name(script))
	}
	return nil
}
