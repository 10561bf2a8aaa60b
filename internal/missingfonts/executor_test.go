package missingfonts

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorSudoArguments(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, sudo is not used")
	}
	ctx := context.Background()
	cmd := exec.Command("dnf", "install", "-y", "dejavu-sans-fonts")

	batch := (&Executor{ShouldRunAsRoot: true}).command(ctx, cmd)
	assert.Equal(t, []string{"sudo", "-E", "-n", cmd.Path, "install", "-y", "dejavu-sans-fonts"}, batch.Args)
	require.NotNil(t, batch.SysProcAttr)
	assert.True(t, batch.SysProcAttr.Setpgid)

	prompt := (&Executor{ShouldRunAsRoot: true, Interactive: true}).command(ctx, cmd)
	assert.Equal(t, []string{"sudo", "-E", cmd.Path, "install", "-y", "dejavu-sans-fonts"}, prompt.Args)
	assert.Nil(t, prompt.SysProcAttr)
}

func TestExecutorWithoutRoot(t *testing.T) {
	cmd := exec.Command("fc-cache", "-f")
	plain := (&Executor{}).command(context.Background(), cmd)
	assert.Equal(t, []string{cmd.Path, "-f"}, plain.Args)
}

func TestExecutorInteractiveRun(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	var out bytes.Buffer
	cmd := exec.Command("cat")
	cmd.Stdin = strings.NewReader("fonts-noto-core\n")
	cmd.Stdout = &out

	require.NoError(t, (&Executor{Interactive: true}).Run(context.Background(), cmd))
	assert.Equal(t, "fonts-noto-core\n", out.String())
}

func TestExecutorKillsOnCancel(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := (&Executor{}).Run(ctx, exec.Command("sleep", "10"))
	assert.ErrorContains(t, err, "command aborted")
	assert.Less(t, time.Since(start), 5*time.Second)
}
