// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import "errors"

var (
	// ErrGreetingMissing is returned if the server does not identify itself
	// as QMP capable monitor on connect.
	ErrGreetingMissing = errors.New("no QMP greeting received")

	// ErrConnectTimeout is returned if the monitor socket did not become
	// available in time.
	ErrConnectTimeout = errors.New("monitor socket did not become available")
)

// QMPError is an error response sent by the monitor.
type QMPError struct {
	Class string `json:"class"`
	Desc  string `json:"desc"`
}

// Error implements the [error] interface.
func (e *QMPError) Error() string {
	return "qmp " + e.Class + ": " + e.Desc
}

// Is implements the [errors.Is] interface.
func (*QMPError) Is(other error) bool {
	_, ok := other.(*QMPError)
	return ok
}

// CommandError is returned if a human monitor command printed an error
// message instead of completing silently.
type CommandError struct {
	Command string
	Output  string
}

// Error implements the [error] interface.
func (e *CommandError) Error() string {
	return "monitor command " + e.Command + ": " + e.Output
}

// Is implements the [errors.Is] interface.
func (*CommandError) Is(other error) bool {
	_, ok := other.(*CommandError)
	return ok
}
