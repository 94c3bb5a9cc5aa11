// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"
)

const connectPollInterval = 50 * time.Millisecond

// Console is an expect-style client for the guest's serial console socket.
//
// It is not safe for concurrent use. The session layer serializes all
// console access.
type Console struct {
	conn   net.Conn
	reader *bufio.Reader
	prompt *regexp.Regexp
}

// Connect dials the serial console on the given unix socket.
//
// The prompt is a regular expression matching the guest's shell prompt. It
// is used to detect when the guest is ready for input and when a command has
// finished. The emulator creates the socket asynchronously during startup,
// so dialing is retried until the context is done.
func Connect(ctx context.Context, socketPath, prompt string) (*Console, error) {
	promptRE, err := regexp.Compile(prompt)
	if err != nil {
		return nil, &Error{Op: "compile prompt", Err: err}
	}

	conn, err := DialSocket(ctx, socketPath)
	if err != nil {
		return nil, err
	}

	return NewConsole(conn, promptRE), nil
}

// DialSocket dials the given unix socket.
//
// The emulator creates its sockets asynchronously during startup, so dialing
// is retried until the context is done.
func DialSocket(ctx context.Context, socketPath string) (net.Conn, error) {
	dialer := net.Dialer{}

	for {
		conn, err := dialer.DialContext(ctx, "unix", socketPath)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrConnectTimeout, err)
		case <-time.After(connectPollInterval):
		}
	}
}

// NewConsole creates a [Console] on the given connection.
func NewConsole(conn net.Conn, prompt *regexp.Regexp) *Console {
	return &Console{
		conn:   conn,
		reader: bufio.NewReader(conn),
		prompt: prompt,
	}
}

// deadlineFromCtx aborts pending reads and writes once the given context is
// done. The returned stop function must be called after the IO completed.
func (c *Console) deadlineFromCtx(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
}

// ExpectPrompt reads console output until the shell prompt is seen.
//
// It returns all output read before the prompt, with carriage returns
// scrubbed. The prompt itself is consumed but not part of the output.
func (c *Console) ExpectPrompt(ctx context.Context) (string, error) {
	defer c.deadlineFromCtx(ctx)()

	var buf bytes.Buffer

	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrClosedBeforePrompt
			}

			return "", &Error{Op: "expect prompt", Err: err}
		}

		// Carriage returns are scrubbed, like [bufio.ScanLines] does.
		if b == '\r' {
			continue
		}

		buf.WriteByte(b)

		if c.prompt.Match(currentLine(buf.Bytes())) {
			output := buf.Bytes()
			output = output[:len(output)-len(currentLine(output))]

			return string(output), nil
		}
	}
}

// currentLine returns the bytes after the last line break.
func currentLine(data []byte) []byte {
	if idx := bytes.LastIndexByte(data, '\n'); idx != -1 {
		return data[idx+1:]
	}

	return data
}

// RunCommand types the given command line into the console and waits for the
// prompt to return.
//
// It returns the command's output, without the echoed command line and
// without the trailing prompt. The command must not require further input,
// as nothing is typed until the prompt is seen again.
func (c *Console) RunCommand(ctx context.Context, cmd string) (string, error) {
	defer c.deadlineFromCtx(ctx)()

	slog.Debug("Typing guest command", slog.String("command", cmd))

	_, err := c.conn.Write([]byte(cmd + "\n"))
	if err != nil {
		return "", &Error{Op: "type command", Err: err}
	}

	output, err := c.ExpectPrompt(ctx)
	if err != nil {
		return "", err
	}

	// Drop the echoed command line.
	if line, rest, found := strings.Cut(output, "\n"); found &&
		strings.HasSuffix(line, cmd) {
		output = rest
	}

	return strings.TrimSuffix(output, "\n"), nil
}

// Close closes the underlying connection.
func (c *Console) Close() error {
	return c.conn.Close() //nolint:wrapcheck
}
