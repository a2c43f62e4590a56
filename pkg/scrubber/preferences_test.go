package scrubber

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
)

func TestPreferences_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", internalConfigFilename)

	value := 612.5
	saved := preferences{
		Value: &value,
		Slider: slider.Record{
			Speeds:          []float64{1.0, 0.5},
			ChangePositions: []float64{0.0, 80.0},
		},
	}

	require.NoError(t, savePreferences(path, saved))

	loaded := loadPreferences(zap.S(), path)
	require.NotNil(t, loaded.Value)
	assert.Equal(t, value, *loaded.Value)
	assert.Equal(t, saved.Slider, loaded.Slider)
}

func TestPreferences_load(t *testing.T) {
	type testCase struct {
		contents       *string
		expectValue    bool
		expectedSpeeds []float64
	}

	str := func(s string) *string { return &s }

	testCases := map[string]testCase{
		"missing-file": {
			contents: nil,
		},
		"garbage": {
			contents: str("{{{ not yaml"),
		},
		"value-only": {
			contents:    str("value: 10\n"),
			expectValue: true,
		},
		"speeds-only": {
			contents:       str("slider:\n  scrubbing_speeds: [1, 0.3]\n"),
			expectedSpeeds: []float64{1, 0.3},
		},
		"malformed-slider-field": {
			contents:    str("value: 3\nslider:\n  scrubbing_speeds: nope\n"),
			expectValue: true,
		},
		"non-finite-value": {
			contents: str("value: .nan\n"),
		},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), internalConfigFilename)
			if testCase.contents != nil {
				require.NoError(t, os.WriteFile(path, []byte(*testCase.contents), 0o644))
			}

			prefs := loadPreferences(zap.S(), path)

			assert.Equal(t, testCase.expectValue, prefs.Value != nil)
			assert.Equal(t, testCase.expectedSpeeds, prefs.Slider.Speeds)
		})
	}
}
