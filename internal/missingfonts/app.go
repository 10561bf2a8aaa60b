package missingfonts

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gookit/color"
)

// Deps are the collaborators an App is built from. Installer and Downloader
// may be nil, which disables the corresponding remedy.
type Deps struct {
	Settings   Settings
	Prefs      PrefStore
	Catalog    RemedyCatalog
	Windows    WindowManager
	Installer  Installer
	Downloader Downloader
	Notifier   Notifier
	Names      *ScriptNamer
}

// App ties the tracker, dispatcher, planner and install queue together and
// runs them on a single event loop.
type App struct {
	settings   Settings
	prefs      PrefStore
	tracker    *Tracker
	dispatcher *Dispatcher
	planner    *Planner
	queue      *InstallQueue
	installer  Installer
	downloader Downloader
	notifier   Notifier
	names      *ScriptNamer

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	// busy counts backend tasks whose completion event has not been handled
	// yet. Only the loop goroutine touches it.
	busy int
}

// NewApp builds an App and seeds its tracker from the preference store. When
// no installer is available the package-kit names are dropped, so only
// downloads are considered.
func NewApp(ctx context.Context, d Deps) *App {
	ctx, cancel := context.WithCancel(ctx)
	names := d.Names
	if names == nil {
		names = NewScriptNamer(d.Settings.Lang)
	}

	a := &App{
		settings:   d.Settings,
		prefs:      d.Prefs,
		tracker:    NewTracker(),
		installer:  d.Installer,
		downloader: d.Downloader,
		notifier:   loggingNotifier{next: d.Notifier},
		names:      names,
		ctx:        ctx,
		cancel:     cancel,
		events:     make(chan Event, 128),
		done:       make(chan struct{}),
	}

	if d.Prefs != nil {
		ignored, err := d.Prefs.LoadIgnoreList()
		if err != nil {
			colArrow.Print("-> ")
			colError.Printf("Failed to load ignored scripts: %v\n", err)
		}
		a.tracker.SeedIgnored(ignored)
		debugf("Ignored scripts: %v\n", ignored)
	}

	managers := d.Settings.PackageKitNames
	if len(managers) > 0 && (d.Installer == nil || !d.Installer.Available(ctx)) {
		debugf("No package installer available, ignoring package-kit names %v\n", managers)
		managers = nil
	}

	a.queue = NewInstallQueue(a.startTransaction)
	a.dispatcher = NewDispatcher(a.tracker, d.Windows, names)
	a.planner = &Planner{
		Catalog:         d.Catalog,
		Managers:        managers,
		FontServer:      d.Settings.FontServer,
		DownloadEnabled: d.Settings.DownloadEnabled && d.Downloader != nil,
		Queue:           a.queue,
		StartDownload:   a.startDownload,
		Notifier:        a.notifier,
		Names:           names,
	}
	return a
}

// Post queues an event for the loop. Events posted after Close are dropped.
func (a *App) Post(e Event) {
	select {
	case a.events <- e:
	case <-a.done:
	}
}

// Run processes events until ctx is cancelled, then closes the App.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-a.events:
			a.Handle(e)
		}
	}
}

// Close tears the windows down, persists the ignore list and cancels running
// backend work.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.cancel()
		close(a.done)
		a.dispatcher.Teardown()
		a.saveIgnored()
	})
}

// Handle processes one event. It never fails: backend errors end up as
// notifications or log lines.
func (a *App) Handle(e Event) {
	switch e := e.(type) {
	case FontNeeded:
		added := a.tracker.RecordMissing(e.Scripts)
		if len(added) > 0 {
			arrowf(colInfo, "Missing fonts for %s\n", strings.Join(a.names.Names(added), ", "))
		}
		a.dispatcher.FontMissing(added)

	case AlertClicked:
		a.dispatcher.AlertClicked()

	case AlertClosed:
		a.dispatcher.WindowClosed(e.Window)

	case DialogClosed:
		a.dispatcher.WindowClosed(e.Window)

	case DialogFinished:
		decision := a.dispatcher.DialogFinished(e.Choice)
		switch decision.Choice {
		case ChoiceAlwaysIgnore:
			arrowf(colInfo, "Ignoring %d script(s) from now on\n", len(a.tracker.PersistIgnored()))
			a.saveIgnored()
		case ChoiceAccept:
			a.remediate(decision.Accepted)
		}

	case TransactionFinished:
		a.busy--
		if e.Err != nil {
			a.notifier.Notify(installFailedTitle, e.Err.Error())
		} else {
			arrowf(colSuccess, "Installed %s\n", strings.Join(e.Packages, " "))
		}
		a.queue.Finish()

	case DownloadFinished:
		a.busy--
		if e.Err != nil {
			colArrow.Print("-> ")
			colError.Printf("Download of %s failed: %v\n", e.URL, e.Err)
			return
		}
		arrowf(colSuccess, "Downloaded %s\n", filepath.Base(e.Path))
		colNote.Printf("Font saved in %s\n", filepath.Dir(e.Path))

	default:
		debugf("Unhandled event %T\n", e)
	}
}

func (a *App) remediate(scripts []string) Plan {
	if len(scripts) == 0 {
		return Plan{}
	}
	plan := a.planner.Process(scripts)
	debugf("Plan: packages=%v downloads=%v unresolved=%v\n", plan.Packages, plan.Downloads, plan.Unresolved)
	return plan
}

// Fix remediates scripts without asking: new scripts are recorded, accepted
// and planned, then events are processed until every install and download
// has finished. Ignored or already handled scripts are skipped. Fix must not
// be used while Run is active.
func (a *App) Fix(ctx context.Context, scripts []string) (Plan, error) {
	added := a.tracker.RecordMissing(scripts)
	a.tracker.MarkProcessed(added)
	plan := a.remediate(added)
	return plan, a.waitIdle(ctx)
}

// waitIdle handles events until no backend task is outstanding.
func (a *App) waitIdle(ctx context.Context) error {
	for a.busy > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-a.events:
			a.Handle(e)
		}
	}
	return nil
}

func (a *App) saveIgnored() {
	if a.prefs == nil {
		return
	}
	if err := a.prefs.SaveIgnoreList(a.tracker.PersistIgnored()); err != nil {
		colArrow.Print("-> ")
		colError.Printf("Failed to save ignored scripts: %v\n", err)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// startTransaction runs one install transaction in the background. It is the
// InstallQueue's starter and runs on the loop goroutine.
func (a *App) startTransaction(packages []string) {
	a.busy++
	arrowf(colInfo, "Installing %s\n", color.Bold.Sprint(strings.Join(packages, " ")))
	go func() {
		ctx, cancel := withTimeout(a.ctx, a.settings.InstallTimeout)
		defer cancel()
		err := errNoInstaller
		if a.installer != nil {
			err = a.installer.InstallPackages(ctx, packages)
		}
		a.Post(TransactionFinished{Packages: packages, Err: err})
	}()
}

// startDownload fires one independent download task.
func (a *App) startDownload(url string, remedy Remedy) {
	a.busy++
	arrowf(colInfo, "Downloading %s\n", url)
	go func() {
		ctx, cancel := withTimeout(a.ctx, a.settings.DownloadTimeout)
		defer cancel()
		path, err := a.downloader.Download(ctx, url, remedy)
		a.Post(DownloadFinished{URL: url, Path: path, Err: err})
	}()
}
