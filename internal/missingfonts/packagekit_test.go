package missingfonts

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandInstaller(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	ok := &CommandInstaller{Argv: []string{"true"}}
	assert.True(t, ok.Available(context.Background()))
	assert.NoError(t, ok.InstallPackages(context.Background(), []string{"fonts-dejavu-core"}))

	fail := &CommandInstaller{Argv: []string{"false"}}
	assert.ErrorContains(t, fail.InstallPackages(context.Background(), []string{"fonts-noto-core"}), "fonts-noto-core")
}

func TestCommandInstallerMissingCommand(t *testing.T) {
	c := &CommandInstaller{Argv: []string{"definitely-not-a-package-manager"}}
	assert.False(t, c.Available(context.Background()))

	empty := &CommandInstaller{}
	assert.False(t, empty.Available(context.Background()))
	assert.ErrorIs(t, empty.InstallPackages(context.Background(), []string{"x"}), errNoInstaller)
}

func TestNewInstaller(t *testing.T) {
	_, ok := newInstaller(Settings{Installer: "packagekit"}, false).(*PackageKitInstaller)
	assert.True(t, ok)

	cmd, ok := newInstaller(Settings{Installer: "command", InstallCommand: []string{"dnf", "install", "-y"}, InstallAsRoot: true}, true).(*CommandInstaller)
	require.True(t, ok)
	assert.Equal(t, []string{"dnf", "install", "-y"}, cmd.Argv)
	assert.True(t, cmd.Exec.ShouldRunAsRoot)
	assert.True(t, cmd.Exec.Interactive)

	assert.Nil(t, newInstaller(Settings{Installer: "none"}, false))
	assert.Nil(t, newInstaller(Settings{Installer: "apt-magic"}, false))
}
