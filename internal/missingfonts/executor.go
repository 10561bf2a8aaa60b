package missingfonts

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Executor runs external commands (package managers, fc-cache), elevating via
// sudo when asked to.
type Executor struct {
	ShouldRunAsRoot bool // the command must run with root privileges
	Interactive     bool // the command may prompt on the terminal
}

// runInteractiveCommand runs a command attached to the TTY, without process
// group isolation, so `sudo -v` can prompt.
func runInteractiveCommand(ctx context.Context, name string, arg ...string) error {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// ensureSudo refreshes the sudo ticket, prompting if the cached one expired.
func (e *Executor) ensureSudo(ctx context.Context) error {
	if os.Geteuid() == 0 || !e.ShouldRunAsRoot {
		return nil
	}
	checkCmd := exec.CommandContext(ctx, "sudo", "-nv")
	checkCmd.Stdout = io.Discard
	checkCmd.Stderr = io.Discard
	if err := checkCmd.Run(); err == nil {
		return nil
	}

	colArrow.Print("-> ")
	colSuccess.Println("Sudo ticket has expired. Re-authenticating")
	if err := runInteractiveCommand(ctx, "sudo", "-v"); err != nil {
		return fmt.Errorf("sudo re-authentication failed: %w", err)
	}
	colArrow.Print("-> ")
	colSuccess.Println("Re-authenticated via sudo successfully.")
	return nil
}

// command builds the process Run starts for cmd.
func (e *Executor) command(ctx context.Context, cmd *exec.Cmd) *exec.Cmd {
	basePath := cmd.Path
	baseArgs := cmd.Args[1:]

	var finalCmd *exec.Cmd
	if e.ShouldRunAsRoot && os.Geteuid() != 0 {
		args := []string{"-E"}
		if !e.Interactive {
			args = append(args, "-n")
		}
		args = append(args, basePath)
		args = append(args, baseArgs...)
		finalCmd = exec.CommandContext(ctx, "sudo", args...)
	} else {
		finalCmd = exec.CommandContext(ctx, basePath, baseArgs...)
	}
	finalCmd.Dir = cmd.Dir

	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr

	if !e.Interactive {
		finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
	return finalCmd
}

// Run executes cmd, wrapping it in sudo when root is required. A
// non-interactive command runs in its own process group, which is killed when
// ctx is done, and uses `sudo -n` so it fails instead of prompting. An
// interactive one shares the terminal and refreshes the sudo ticket first.
func (e *Executor) Run(ctx context.Context, cmd *exec.Cmd) error {
	if cmd.Stdin == nil && e.Interactive {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = logOutput
	}
	if cmd.Stderr == nil {
		cmd.Stderr = logOutput
	}

	if e.Interactive {
		if err := e.ensureSudo(ctx); err != nil {
			return err
		}
	}

	finalCmd := e.command(ctx, cmd)
	debugf("Running %v\n", finalCmd.Args)
	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	if !e.Interactive {
		pgid := finalCmd.Process.Pid
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				syscall.Kill(-pgid, syscall.SIGKILL)
			case <-done:
			}
		}()
	}

	if waitErr := finalCmd.Wait(); waitErr != nil {
		if ctx.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", ctx.Err())
		}
		return waitErr
	}
	return nil
}
