// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedUintValue_Set(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		min, max    uint64
		expected    uint64
		expectedErr error
	}{
		{
			name:        "empty",
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:        "not a number",
			input:       "much",
			expectedErr: strconv.ErrSyntax,
		},
		{
			name:     "valid without limits",
			input:    "42",
			expected: 42,
		},
		{
			name:     "valid within limits",
			input:    "256",
			min:      128,
			max:      16384,
			expected: 256,
		},
		{
			name:        "below minimum",
			input:       "64",
			min:         128,
			expectedErr: ErrValueOutOfRange,
		},
		{
			name:        "above maximum",
			input:       "32768",
			max:         16384,
			expectedErr: ErrValueOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var actual uint64

			value := limitedUintValue{
				Value: &actual,
				min:   tt.min,
				max:   tt.max,
			}

			err := value.Set(tt.input)

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
		})
	}
}
