// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package network

// DeviceNameError indicates an unusable network device name.
type DeviceNameError struct {
	Name string
	Msg  string
}

// Error implements the [error] interface.
func (e *DeviceNameError) Error() string {
	return "device name " + e.Name + ": " + e.Msg
}

// Is implements the [errors.Is] interface.
func (*DeviceNameError) Is(other error) bool {
	_, ok := other.(*DeviceNameError)
	return ok
}
