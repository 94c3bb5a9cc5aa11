// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor_test

import (
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/pandarun/internal/monitor"
)

// hmpHandler maps human monitor command lines to their textual output.
type hmpHandler map[string]string

// serveQMP runs a scripted QMP server on the given connection. It sends the
// greeting, accepts qmp_capabilities and serves human-monitor-command
// requests from the handler map until the connection is closed.
func serveQMP(t *testing.T, conn net.Conn, handler hmpHandler) {
	t.Helper()

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	require.NoError(t, enc.Encode(map[string]any{
		"QMP": map[string]any{"version": map[string]any{}},
	}))

	for {
		var cmd struct {
			Execute   string            `json:"execute"`
			Arguments map[string]string `json:"arguments"`
		}

		if err := dec.Decode(&cmd); err != nil {
			return
		}

		switch cmd.Execute {
		case "qmp_capabilities":
			_ = enc.Encode(map[string]any{"return": map[string]any{}})
		case "quit":
			_ = enc.Encode(map[string]any{"return": map[string]any{}})
			_ = conn.Close()

			return
		case "human-monitor-command":
			output, exists := handler[cmd.Arguments["command-line"]]
			if !exists {
				_ = enc.Encode(map[string]any{
					"error": map[string]string{
						"class": "CommandNotFound",
						"desc":  "unknown command",
					},
				})

				continue
			}

			_ = enc.Encode(map[string]any{"return": output})
		default:
			_ = enc.Encode(map[string]any{
				"error": map[string]string{
					"class": "CommandNotFound",
					"desc":  "The command " + cmd.Execute + " has not been found",
				},
			})
		}
	}
}

func newTestClient(t *testing.T, handler hmpHandler) *monitor.Client {
	t.Helper()

	clientConn, serverConn := net.Pipe()

	go serveQMP(t, serverConn, handler)

	client, err := monitor.NewClient(t.Context(), clientConn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		_ = serverConn.Close()
	})

	return client
}

func TestClientHandshake(t *testing.T) {
	t.Run("greeting accepted", func(t *testing.T) {
		_ = newTestClient(t, nil)
	})

	t.Run("greeting missing", func(t *testing.T) {
		clientConn, serverConn := net.Pipe()
		t.Cleanup(func() {
			_ = clientConn.Close()
			_ = serverConn.Close()
		})

		go func() {
			enc := json.NewEncoder(serverConn)
			_ = enc.Encode(map[string]any{"return": map[string]any{}})
		}()

		_, err := monitor.NewClient(t.Context(), clientConn)
		require.ErrorIs(t, err, monitor.ErrGreetingMissing)
	})
}

func TestClientLoadVM(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, hmpHandler{
			"loadvm root": "",
		})

		err := client.LoadVM(t.Context(), "root")
		require.NoError(t, err)
	})

	t.Run("snapshot missing", func(t *testing.T) {
		client := newTestClient(t, hmpHandler{
			"loadvm missing": "Device 'ide0-hd0' does not have the requested snapshot 'missing'\r\n",
		})

		err := client.LoadVM(t.Context(), "missing")
		require.ErrorIs(t, err, &monitor.CommandError{})

		var cmdErr *monitor.CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, "loadvm missing", cmdErr.Command)
		assert.Contains(t, cmdErr.Output, "does not have the requested snapshot")
	})
}

func TestClientRecordCommands(t *testing.T) {
	client := newTestClient(t, hmpHandler{
		"begin_record test": "",
		"end_record":        "",
	})

	require.NoError(t, client.BeginRecord(t.Context(), "test"))
	require.NoError(t, client.EndRecord(t.Context()))
}

func TestClientQMPError(t *testing.T) {
	client := newTestClient(t, nil)

	_, err := client.Execute(t.Context(), "does-not-exist", nil)
	require.ErrorIs(t, err, &monitor.QMPError{})

	var qmpErr *monitor.QMPError
	require.ErrorAs(t, err, &qmpErr)
	assert.Equal(t, "CommandNotFound", qmpErr.Class)
}

func TestClientQuit(t *testing.T) {
	client := newTestClient(t, nil)

	err := client.Quit(t.Context())
	require.NoError(t, err)
}

func TestClientSkipsEvents(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() {
		_ = clientConn.Close()
		_ = serverConn.Close()
	})

	go func() {
		dec := json.NewDecoder(serverConn)
		enc := json.NewEncoder(serverConn)

		_ = enc.Encode(map[string]any{"QMP": map[string]any{}})

		for range 2 {
			var cmd map[string]any
			if err := dec.Decode(&cmd); err != nil {
				return
			}

			// Unrelated event arrives before the response.
			_ = enc.Encode(map[string]any{
				"event":     "RTC_CHANGE",
				"timestamp": map[string]int{"seconds": 0},
			})
			_ = enc.Encode(map[string]any{"return": ""})
		}
	}()

	client, err := monitor.NewClient(t.Context(), clientConn)
	require.NoError(t, err)

	output, err := client.HumanMonitorCommand(t.Context(), "info status")
	require.NoError(t, err)
	assert.Empty(t, output)
}
