package missingfonts

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/godbus/dbus/v5"
)

// Installer installs distribution packages by name.
type Installer interface {
	// Available reports whether the installer can be used at all.
	Available(ctx context.Context) bool
	// InstallPackages runs one transaction and blocks until it ends.
	InstallPackages(ctx context.Context, names []string) error
}

const (
	packageKitName      = "org.freedesktop.PackageKit"
	packageKitPath      = dbus.ObjectPath("/org/freedesktop/PackageKit")
	packageKitInstall   = "org.freedesktop.PackageKit.Modify.InstallPackageNames"
	packageKitUIOptions = "hide-finished"
)

// PackageKitInstaller talks to the PackageKit session service, which shows its
// own confirmation and progress UI.
type PackageKitInstaller struct {
	// Connect opens the bus; nil means the session bus.
	Connect func() (*dbus.Conn, error)
}

func (p *PackageKitInstaller) conn() (*dbus.Conn, error) {
	if p.Connect != nil {
		return p.Connect()
	}
	return dbus.ConnectSessionBus()
}

// Available reports whether the session service is running or activatable.
func (p *PackageKitInstaller) Available(ctx context.Context) bool {
	conn, err := p.conn()
	if err != nil {
		debugf("PackageKit: no session bus: %v\n", err)
		return false
	}
	defer conn.Close()

	return busNameAvailable(ctx, conn, packageKitName)
}

// busNameAvailable reports whether name is owned on conn's bus or can be
// activated there.
func busNameAvailable(ctx context.Context, conn *dbus.Conn, name string) bool {
	bus := conn.BusObject()
	var owned bool
	if err := bus.CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned); err == nil && owned {
		return true
	}
	var names []string
	if err := bus.CallWithContext(ctx, "org.freedesktop.DBus.ListActivatableNames", 0).Store(&names); err != nil {
		debugf("Listing activatable bus names failed: %v\n", err)
		return false
	}
	return slices.Contains(names, name)
}

// InstallPackages asks PackageKit to install names in a single transaction.
func (p *PackageKitInstaller) InstallPackages(ctx context.Context, names []string) error {
	conn, err := p.conn()
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(packageKitName, packageKitPath)
	call := obj.CallWithContext(ctx, packageKitInstall, 0, uint32(0), names, packageKitUIOptions)
	if call.Err != nil {
		return fmt.Errorf("PackageKit install of %s: %w", strings.Join(names, " "), call.Err)
	}
	return nil
}

// CommandInstaller runs a package manager command with the package names
// appended, for systems without the PackageKit session service.
type CommandInstaller struct {
	Argv []string
	Exec *Executor
}

func (c *CommandInstaller) Available(_ context.Context) bool {
	if len(c.Argv) == 0 {
		return false
	}
	_, err := exec.LookPath(c.Argv[0])
	return err == nil
}

func (c *CommandInstaller) InstallPackages(ctx context.Context, names []string) error {
	if len(c.Argv) == 0 {
		return errNoInstaller
	}
	args := append(slices.Clone(c.Argv[1:]), names...)
	cmd := exec.Command(c.Argv[0], args...)
	executor := c.Exec
	if executor == nil {
		executor = &Executor{}
	}
	if err := executor.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s %s: %w", c.Argv[0], strings.Join(names, " "), err)
	}
	return nil
}

// newInstaller picks the installer named in settings; nil means none. An
// interactive command installer may prompt for the sudo password.
func newInstaller(s Settings, interactive bool) Installer {
	switch s.Installer {
	case "packagekit":
		return &PackageKitInstaller{}
	case "command":
		return &CommandInstaller{
			Argv: s.InstallCommand,
			Exec: &Executor{ShouldRunAsRoot: s.InstallAsRoot, Interactive: interactive},
		}
	case "none", "":
		return nil
	}
	colArrow.Print("-> ")
	colWarn.Printf("Unknown installer %q, package installs disabled\n", s.Installer)
	return nil
}
