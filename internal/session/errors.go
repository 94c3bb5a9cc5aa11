// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import "errors"

var (
	// ErrNotRunning is returned if a guest interaction is attempted while
	// the session's run loop is not active.
	ErrNotRunning = errors.New("session is not running")

	// ErrAlreadyRunning is returned if a session is run or modified while
	// its run loop is active.
	ErrAlreadyRunning = errors.New("session is already running")

	// ErrNoConsole is returned if a guest interaction requires the serial
	// console but the session does not own it, like in interactive or
	// replay mode.
	ErrNoConsole = errors.New("session has no console")
)

// TaskError wraps an error returned by a queued task.
type TaskError struct {
	Err error
}

// Error implements the [error] interface.
func (e *TaskError) Error() string {
	return "task: " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*TaskError) Is(other error) bool {
	_, ok := other.(*TaskError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *TaskError) Unwrap() error {
	return e.Err
}
