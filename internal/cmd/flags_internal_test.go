// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/pandarun/internal/image"
)

func TestFlags_ParseArgs(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		expectedErr   error
		assertedFlags func(t *testing.T, f *flags)
	}{
		{
			name:        "help",
			args:        []string{"-help"},
			expectedErr: ErrHelp,
		},
		{
			name:        "version",
			args:        []string{"-version"},
			expectedErr: ErrHelp,
		},
		{
			name: "defaults",
			args: []string{},
			assertedFlags: func(t *testing.T, f *flags) {
				t.Helper()
				assert.Equal(t, "x86_64_ubuntu_1804", f.image.Name)
				assert.Equal(t, defaultCommand, f.command)
				assert.Equal(t, defaultRecording, f.recording)
				assert.Equal(t, "root", f.snapshot)
			},
		},
		{
			name: "image alias",
			args: []string{"i386"},
			assertedFlags: func(t *testing.T, f *flags) {
				t.Helper()
				assert.Equal(t, "i386_wheezy", f.image.Name)
			},
		},
		{
			name:        "unknown image",
			args:        []string{"sparc"},
			expectedErr: &image.NotSupportedError{},
		},
		{
			name:        "too many arguments",
			args:        []string{"x86_64", "i386"},
			expectedErr: &ParseArgsError{},
		},
		{
			name: "snapshot override",
			args: []string{"-snapshot", "clean", "x86_64"},
			assertedFlags: func(t *testing.T, f *flags) {
				t.Helper()
				assert.Equal(t, "clean", f.snapshot)
			},
		},
		{
			name:        "memory below minimum",
			args:        []string{"-mem", "64"},
			expectedErr: &ParseArgsError{},
		},
		{
			name:        "invalid tap device name",
			args:        []string{"-net", "this-name-is-way-too-long"},
			expectedErr: &ParseArgsError{},
		},
		{
			name:        "replay with pty",
			args:        []string{"-replay", "test", "-pty"},
			expectedErr: &ParseArgsError{},
		},
		{
			name: "replay",
			args: []string{"-replay", "test", "x86_64"},
			assertedFlags: func(t *testing.T, f *flags) {
				t.Helper()
				assert.Equal(t, "test", f.replay)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := newFlags(io.Discard)

			err := flags.ParseArgs(tt.args)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)

			if tt.assertedFlags != nil {
				tt.assertedFlags(t, flags)
			}
		})
	}
}
