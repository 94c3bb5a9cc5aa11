// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"
)

// PTYBridge exposes a console socket as pseudo terminal device on the host,
// so external terminal tools can attach to the guest console.
type PTYBridge struct {
	conn net.Conn
	ptmx *os.File
	tty  *os.File
}

// NewPTYBridge allocates a new pseudo terminal pair and connects it to the
// given console socket connection.
//
// The terminal device path to attach to is returned by [PTYBridge.Name].
func NewPTYBridge(conn net.Conn) (*PTYBridge, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, &Error{Op: "open pty", Err: err}
	}

	bridge := &PTYBridge{
		conn: conn,
		ptmx: ptmx,
		tty:  tty,
	}

	return bridge, nil
}

// Name returns the path of the terminal device to attach to.
func (b *PTYBridge) Name() string {
	return b.tty.Name()
}

// Run copies data between the pseudo terminal and the console socket until
// the context is done or either side is closed.
func (b *PTYBridge) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = b.conn.SetDeadline(time.Now())
		_ = b.ptmx.SetDeadline(time.Now())
	})
	defer stop()

	eg := errgroup.Group{}

	eg.Go(func() error {
		_, err := io.Copy(b.ptmx, b.conn)
		return err //nolint:wrapcheck
	})

	eg.Go(func() error {
		_, err := io.Copy(b.conn, b.ptmx)
		return err //nolint:wrapcheck
	})

	err := eg.Wait()
	if err != nil && ctx.Err() == nil &&
		!errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		return &Error{Op: "pty bridge", Err: err}
	}

	return nil
}

// Close closes the terminal pair and the socket connection.
func (b *PTYBridge) Close() error {
	return errors.Join(
		b.ptmx.Close(),
		b.tty.Close(),
		b.conn.Close(),
	)
}
