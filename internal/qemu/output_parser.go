// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
)

//nolint:gochecknoglobals
var (
	panicRE = regexp.MustCompile(`^\[[0-9. ]+\] Kernel panic - not syncing: `)
	oomRE   = regexp.MustCompile(`^\[[0-9. ]+\] Out of memory: `)
)

// outputParser scans the emulator's stdout for guest kernel panic and OOM
// messages.
//
// After use, the result can be retrieved by calling
// [outputParser.GuestError]. It returns a [CommandError] with the Guest flag
// set if an error message was seen.
type outputParser struct {
	Verbose bool

	err error
}

// Parse processes the src line by line until it is closed.
//
// Lines are forwarded to dst only in verbose mode. After a guest error has
// been seen all following lines are forwarded as well, as they enhance the
// context information of kernel error messages.
func (p *outputParser) Parse(dst io.Writer, src io.Reader) error {
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		line := scanner.Bytes()

		switch {
		case oomRE.Match(line):
			p.err = ErrGuestOom
		case panicRE.Match(line):
			p.err = ErrGuestPanic
		}

		if !p.Verbose && p.err == nil {
			continue
		}

		err := writeLn(dst, line)
		if err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	return nil
}

// GuestError returns nil if no guest error message was seen.
func (p *outputParser) GuestError() error {
	if p.err == nil {
		return nil
	}

	return &CommandError{
		Guest: true,
		Err:   p.err,
	}
}

func writeLn(dst io.Writer, data []byte) error {
	if dst == nil {
		return nil
	}

	_, err := dst.Write(data)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	_, err = dst.Write([]byte("\n"))
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}
