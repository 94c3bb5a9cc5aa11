// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package monitor provides a minimal QMP client for controlling the emulator
// process: snapshot revert, record/replay control and shutdown.
//
// QMP is a line based JSON protocol. The server sends a greeting on connect,
// the client activates the session with the qmp_capabilities command and
// runs commands afterwards. Asynchronous event messages may arrive at any
// time and are skipped.
package monitor
