// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console_test

import (
	"context"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/pandarun/internal/console"
)

func TestPTYBridge(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { _ = serverConn.Close() })

	bridge, err := console.NewPTYBridge(clientConn)
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	t.Cleanup(func() { _ = bridge.Close() })

	assert.NotEmpty(t, bridge.Name())

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- bridge.Run(ctx)
	}()

	tty, err := os.OpenFile(bridge.Name(), os.O_RDWR, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tty.Close() })

	// Console output must show up on the terminal device.
	_, err = serverConn.Write([]byte("guest output"))
	require.NoError(t, err)

	buf := make([]byte, 32)
	n, err := tty.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "guest output", string(buf[:n]))

	cancel()
	require.NoError(t, <-done)
}
