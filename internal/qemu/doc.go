// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu provides utilities for composing and running record/replay
// capable QEMU system emulator commands as needed by pandarun. It expects
// the required emulator binary to be present on the system.
//
// The emulator is run headless. It is controlled via a QMP monitor unix
// socket and guest interaction happens on a serial console unix socket. The
// process is expected to terminate on a quit monitor command, so
// [Command.Run] blocks until then.
package qemu
