// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"
)

const connectPollInterval = 50 * time.Millisecond

// Client is a client for the emulator's QMP monitor socket.
//
// It is not safe for concurrent use. The session layer serializes all
// monitor access.
type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

// message is a single server message. The fields discriminate greeting,
// command response and asynchronous event.
type message struct {
	QMP       json.RawMessage `json:"QMP,omitempty"`
	Return    json.RawMessage `json:"return,omitempty"`
	Error     *QMPError       `json:"error,omitempty"`
	Event     string          `json:"event,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type command struct {
	Execute   string `json:"execute"`
	Arguments any    `json:"arguments,omitempty"`
}

// Connect dials the QMP monitor on the given unix socket and performs the
// capabilities handshake.
//
// The emulator creates the socket asynchronously during startup, so dialing
// is retried until the context is done.
func Connect(ctx context.Context, socketPath string) (*Client, error) {
	dialer := net.Dialer{}

	var (
		conn net.Conn
		err  error
	)

	for {
		conn, err = dialer.DialContext(ctx, "unix", socketPath)
		if err == nil {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrConnectTimeout, err)
		case <-time.After(connectPollInterval):
		}
	}

	client, err := NewClient(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return client, nil
}

// NewClient creates a [Client] on the given connection and performs the
// capabilities handshake.
func NewClient(ctx context.Context, conn net.Conn) (*Client, error) {
	client := &Client{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}

	err := client.handshake(ctx)
	if err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) handshake(ctx context.Context) error {
	defer c.deadlineFromCtx(ctx)()

	var greeting message

	err := c.dec.Decode(&greeting)
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}

	if greeting.QMP == nil {
		return ErrGreetingMissing
	}

	_, err = c.execute(command{Execute: "qmp_capabilities"})
	if err != nil {
		return fmt.Errorf("capabilities: %w", err)
	}

	return nil
}

// deadlineFromCtx aborts pending reads and writes once the given context is
// done. The returned stop function must be called after the IO completed.
func (c *Client) deadlineFromCtx(ctx context.Context) func() bool {
	return context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
}

// Execute runs the given QMP command and returns its raw result.
//
// Asynchronous events arriving in between are logged and skipped.
func (c *Client) Execute(
	ctx context.Context,
	name string,
	arguments any,
) (json.RawMessage, error) {
	defer c.deadlineFromCtx(ctx)()

	return c.execute(command{Execute: name, Arguments: arguments})
}

func (c *Client) execute(cmd command) (json.RawMessage, error) {
	err := c.enc.Encode(cmd)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd.Execute, err)
	}

	for {
		var msg message

		err := c.dec.Decode(&msg)
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", cmd.Execute, err)
		}

		switch {
		case msg.Error != nil:
			return nil, msg.Error
		case msg.Event != "":
			slog.Debug("QMP event", slog.String("event", msg.Event))
		default:
			return msg.Return, nil
		}
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close() //nolint:wrapcheck
}
