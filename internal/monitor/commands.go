// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

// HumanMonitorCommand runs the given command line on the human monitor and
// returns its textual output.
//
// Record/replay and snapshot handling are exposed by the emulator on the
// human monitor only, so all typed commands below are built on this.
func (c *Client) HumanMonitorCommand(
	ctx context.Context,
	commandLine string,
) (string, error) {
	arguments := map[string]string{"command-line": commandLine}

	result, err := c.Execute(ctx, "human-monitor-command", arguments)
	if err != nil {
		return "", err
	}

	var output string

	err = json.Unmarshal(result, &output)
	if err != nil {
		return "", fmt.Errorf("unmarshal output: %w", err)
	}

	return output, nil
}

// runSilent runs a human monitor command that is expected to complete
// without output. Any output is returned as [CommandError].
func (c *Client) runSilent(ctx context.Context, commandLine string) error {
	output, err := c.HumanMonitorCommand(ctx, commandLine)
	if err != nil {
		return err
	}

	if output = strings.TrimSpace(output); output != "" {
		return &CommandError{
			Command: commandLine,
			Output:  output,
		}
	}

	return nil
}

// LoadVM reverts the guest to the named snapshot. It blocks until the revert
// completed or failed.
func (c *Client) LoadVM(ctx context.Context, name string) error {
	return c.runSilent(ctx, "loadvm "+name)
}

// SaveVM captures the current guest state as named snapshot.
func (c *Client) SaveVM(ctx context.Context, name string) error {
	return c.runSilent(ctx, "savevm "+name)
}

// BeginRecord starts recording guest execution into the named recording.
func (c *Client) BeginRecord(ctx context.Context, name string) error {
	return c.runSilent(ctx, "begin_record "+name)
}

// EndRecord stops the currently running recording.
func (c *Client) EndRecord(ctx context.Context) error {
	return c.runSilent(ctx, "end_record")
}

// Quit terminates the emulator process.
//
// The emulator may close the connection before the response is sent, so a
// closed connection is not an error here.
func (c *Client) Quit(ctx context.Context) error {
	_, err := c.Execute(ctx, "quit", nil)
	if err != nil &&
		!errors.Is(err, io.EOF) &&
		!errors.Is(err, io.ErrUnexpectedEOF) &&
		!errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
