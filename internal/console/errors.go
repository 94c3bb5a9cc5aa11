// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import "errors"

var (
	// ErrConnectTimeout is returned if the console socket did not become
	// available in time.
	ErrConnectTimeout = errors.New("console socket did not become available")

	// ErrClosedBeforePrompt is returned if the console was closed before the
	// expected prompt was seen.
	ErrClosedBeforePrompt = errors.New("console closed before prompt")
)

// Error wraps any error occurring during console processing.
type Error struct {
	Op  string
	Err error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return "console " + e.Op + ": " + e.Err.Error()
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}
