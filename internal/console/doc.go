// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package console provides guest interaction via the emulator's serial
// console socket: expect-style prompt matching, typed command execution and
// a pseudo terminal bridge for interactive access.
package console
