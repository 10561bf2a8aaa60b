package missingfonts

import (
	"strings"
)

// Plan records what Process decided, for logging and tests.
type Plan struct {
	Packages   []string // package names queued for installation
	Downloads  []string // URLs requested from the font server
	Unresolved []string // display names of scripts with no remedy
}

// Planner resolves accepted scripts to package installs or downloads.
type Planner struct {
	Catalog         RemedyCatalog
	Managers        []string // package-kit identifiers, in priority order
	FontServer      string
	DownloadEnabled bool
	Queue           *InstallQueue
	StartDownload   func(url string, remedy Remedy)
	Notifier        Notifier
	Names           *ScriptNamer
}

// fontURL joins the server base and a catalog file name.
func fontURL(base, file string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(file, "/")
}

// Process handles scripts in order. For each one a package match for any
// configured manager wins; otherwise a download is started if the server is
// enabled; otherwise the script is reported as having no fonts. The install
// queue is drained once at the end and unresolved scripts produce a single
// notification.
func (p *Planner) Process(scripts []string) Plan {
	var plan Plan

	for _, name := range scripts {
		remedy, ok := p.Catalog.Lookup(name)
		if ok {
			if pkgs := remedy.PackageNames(p.Managers); len(pkgs) > 0 {
				debugf("%s: queueing packages %v\n", name, pkgs)
				p.Queue.Enqueue(pkgs...)
				plan.Packages = append(plan.Packages, pkgs...)
				continue
			}
			if p.DownloadEnabled && p.FontServer != "" && remedy.Download != "" {
				url := fontURL(p.FontServer, remedy.Download)
				debugf("%s: downloading %s\n", name, url)
				p.StartDownload(url, remedy)
				plan.Downloads = append(plan.Downloads, url)
				continue
			}
		}
		plan.Unresolved = append(plan.Unresolved, p.Names.Name(name))
	}

	p.Queue.Drain()
	if len(plan.Unresolved) > 0 {
		p.Notifier.Notify(alertTitle, noFontsAvailable+" "+strings.Join(plan.Unresolved, ", "))
	}
	return plan
}
