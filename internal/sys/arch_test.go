// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/pandarun/internal/sys"
)

func TestArchMarshalText(t *testing.T) {
	tests := []struct {
		input       sys.Arch
		expected    string
		expectedErr error
	}{
		{
			input:    sys.X86_64,
			expected: "x86_64",
		},
		{
			input:    sys.I386,
			expected: "i386",
		},
		{
			input:    sys.ARM,
			expected: "arm",
		},
		{
			input:    sys.MIPS,
			expected: "mips",
		},
		{
			input:       sys.Arch("sparc"),
			expectedErr: sys.ErrArchNotSupported,
		},
		{
			input:       sys.Arch(""),
			expectedErr: sys.ErrArchNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			actual, err := tt.input.MarshalText()
			require.ErrorIs(t, err, tt.expectedErr)

			assert.Equal(t, tt.expected, string(actual))
		})
	}
}

func TestArchUnmarshalText(t *testing.T) {
	tests := []struct {
		input       string
		expected    sys.Arch
		expectedErr error
	}{
		{
			input:    "x86_64",
			expected: sys.X86_64,
		},
		{
			input:    "arm",
			expected: sys.ARM,
		},
		{
			input:       "aarch64",
			expectedErr: sys.ErrArchNotSupported,
		},
		{
			input:       "amd64",
			expectedErr: sys.ErrArchNotSupported,
		},
		{
			input:       "",
			expectedErr: sys.ErrArchNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var actual sys.Arch

			err := actual.UnmarshalText([]byte(tt.input))
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.expectedErr == nil {
				assert.Equal(t, tt.expected, actual)
			}
		})
	}
}

func TestArchIsNative(t *testing.T) {
	native, ok := sys.Native()
	if !ok {
		t.Skip("host architecture has no guest equivalent")
	}

	assert.True(t, native.IsNative())

	other := sys.MIPS
	if native == sys.MIPS {
		other = sys.X86_64
	}

	assert.False(t, other.IsNative())
}
