// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputParser(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		verbose        bool
		expectedOutput string
		expectedErr    error
	}{
		{
			name:    "clean output discarded",
			input:   "some boot noise\nanother line\n",
			verbose: false,
		},
		{
			name:           "clean output forwarded verbose",
			input:          "some boot noise\n",
			verbose:        true,
			expectedOutput: "some boot noise\n",
		},
		{
			name:           "kernel panic",
			input:          "noise\n[    2.161141] Kernel panic - not syncing: Attempted to kill init!\ntrace line\n",
			expectedOutput: "[    2.161141] Kernel panic - not syncing: Attempted to kill init!\ntrace line\n",
			expectedErr:    ErrGuestPanic,
		},
		{
			name:           "oom",
			input:          "[  100.000000] Out of memory: Killed process 42 (bash)\n",
			expectedOutput: "[  100.000000] Out of memory: Killed process 42 (bash)\n",
			expectedErr:    ErrGuestOom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := outputParser{Verbose: tt.verbose}
			dst := strings.Builder{}

			err := parser.Parse(&dst, strings.NewReader(tt.input))
			require.NoError(t, err)

			assert.Equal(t, tt.expectedOutput, dst.String())

			guestErr := parser.GuestError()
			require.ErrorIs(t, guestErr, tt.expectedErr)

			if tt.expectedErr != nil {
				require.ErrorIs(t, guestErr, &CommandError{})

				var cmdErr *CommandError
				require.ErrorAs(t, guestErr, &cmdErr)
				assert.True(t, cmdErr.Guest)
			}
		})
	}
}

func TestOutputParserForwardsAfterError(t *testing.T) {
	input := "[    2.161141] Kernel panic - not syncing: boom\ncontext line\n"
	parser := outputParser{}
	dst := strings.Builder{}

	err := parser.Parse(&dst, strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, input, dst.String())
}
