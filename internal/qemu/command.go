// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Command is a single emulator command that can be run.
type Command struct {
	executable string
	args       []string
	workDir    string
	verbose    bool
}

// NewCommand creates a new [Command] from the given [CommandSpec].
//
// The spec is validated and the argument list is compiled. No emulation work
// is started yet, use [Command.Run] for that.
func NewCommand(spec CommandSpec) (*Command, error) {
	err := spec.Validate()
	if err != nil {
		return nil, err
	}

	args, err := BuildArgumentStrings(spec.arguments())
	if err != nil {
		return nil, err
	}

	cmd := &Command{
		executable: spec.Executable,
		args:       args,
		workDir:    spec.WorkDir,
		verbose:    spec.Verbose,
	}

	return cmd, nil
}

// String implements [fmt.Stringer].
func (c *Command) String() string {
	return c.executable + " " + strings.Join(c.args, " ")
}

// Run runs the emulator process until it terminates.
//
// The process is expected to be terminated from the outside, usually with a
// quit command on the monitor socket, or by canceling the given context. The
// process's stdout is scanned for guest kernel panic and OOM messages, which
// are returned as [CommandError] with the Guest flag set. It is forwarded to
// the given stdout writer only in verbose mode.
func (c *Command) Run(ctx context.Context, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.executable, c.args...)
	cmd.Dir = c.workDir
	cmd.Stderr = stderr

	// SIGTERM instead of SIGKILL on context cancellation so the emulator can
	// sync its disk image.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(termSignal) //nolint:wrapcheck
	}

	out, err := cmd.StdoutPipe()
	if err != nil {
		return &CommandError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	parser := outputParser{Verbose: c.verbose}

	eg := errgroup.Group{}
	eg.Go(func() error {
		return parser.Parse(stdout, out)
	})

	err = cmd.Start()
	if err != nil {
		return &CommandError{Err: fmt.Errorf("start: %w", err)}
	}

	waitErr := cmd.Wait()
	parseErr := eg.Wait()

	if guestErr := parser.GuestError(); guestErr != nil {
		return guestErr
	}

	if waitErr != nil {
		// Context cancellation is a regular shutdown path.
		if ctx.Err() != nil {
			return ctx.Err() //nolint:wrapcheck
		}

		return &CommandError{Err: fmt.Errorf("wait: %w", waitErr)}
	}

	if parseErr != nil {
		return &CommandError{Err: parseErr}
	}

	return nil
}
