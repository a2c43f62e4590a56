package util

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPercent(t *testing.T) {
	testCases := map[string]struct {
		given    float64
		expected string
	}{
		"full":   {given: 1.0, expected: "100%"},
		"half":   {given: 0.5, expected: "50%"},
		"fine":   {given: 0.1, expected: "10%"},
		"odd":    {given: 0.333, expected: "33%"},
		"zeroed": {given: 0, expected: "0%"},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			assert.Equal(t, testCase.expected, FormatPercent(testCase.given))
		})
	}
}

func TestFinite(t *testing.T) {
	assert.True(t, Finite(0.5))
	assert.False(t, Finite(math.NaN()))
	assert.False(t, Finite(math.Inf(-1)))
}

func TestEnsureDirExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")

	require.NoError(t, EnsureDirExists(dir))
	require.NoError(t, EnsureDirExists(dir))

	assert.False(t, FileExists(dir), "directories are not files")
	assert.False(t, FileExists(filepath.Join(dir, "missing.yaml")))
}
