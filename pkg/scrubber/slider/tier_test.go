package slider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeedForOffset_defaults(t *testing.T) {
	type testCase struct {
		offset        float64
		expectedSpeed float64
	}

	testCases := map[string]testCase{
		"on-track":       {offset: 0, expectedSpeed: 1.0},
		"just-below-50":  {offset: 49.9, expectedSpeed: 1.0},
		"at-50":          {offset: 50, expectedSpeed: 0.5},
		"between-50-100": {offset: 75, expectedSpeed: 0.5},
		"at-100":         {offset: 100, expectedSpeed: 0.25},
		"just-below-150": {offset: 149.9, expectedSpeed: 0.25},
		"at-150":         {offset: 150, expectedSpeed: 0.1},
		"far-away":       {offset: 10000, expectedSpeed: 0.1},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			speed, ok := SpeedForOffset(defaultScrubbingSpeeds, defaultScrubbingSpeedChangePositions, testCase.offset)

			assert.True(t, ok)
			assert.Equal(t, testCase.expectedSpeed, speed)
		})
	}
}

func TestSpeedForOffset_monotonic(t *testing.T) {
	previous := 2.0

	for offset := 0.0; offset < 400; offset += 0.5 {
		speed, ok := SpeedForOffset(defaultScrubbingSpeeds, defaultScrubbingSpeedChangePositions, offset)

		assert.True(t, ok)
		assert.LessOrEqual(t, speed, previous, "offset %v", offset)
		previous = speed
	}
}

func TestSpeedForOffset_degenerate(t *testing.T) {
	type testCase struct {
		speeds        []float64
		positions     []float64
		offset        float64
		expectedSpeed float64
		expectedOK    bool
	}

	testCases := map[string]testCase{
		"no-speeds": {
			speeds:     nil,
			positions:  []float64{0, 50},
			offset:     10,
			expectedOK: false,
		},
		"more-positions-than-speeds": {
			speeds:        []float64{1.0, 0.5},
			positions:     []float64{0, 50, 100, 150},
			offset:        120,
			expectedSpeed: 0.5,
			expectedOK:    true,
		},
		"more-speeds-than-positions": {
			speeds:        []float64{1.0, 0.5, 0.25, 0.1},
			positions:     []float64{0, 50},
			offset:        60,
			expectedSpeed: 0.1,
			expectedOK:    true,
		},
		"no-positions": {
			speeds:        []float64{1.0, 0.5},
			positions:     nil,
			offset:        0,
			expectedSpeed: 0.5,
			expectedOK:    true,
		},
		"below-first-position": {
			speeds:        []float64{1.0, 0.5},
			positions:     []float64{20, 80},
			offset:        5,
			expectedSpeed: 1.0,
			expectedOK:    true,
		},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			speed, ok := SpeedForOffset(testCase.speeds, testCase.positions, testCase.offset)

			assert.Equal(t, testCase.expectedOK, ok)
			if testCase.expectedOK {
				assert.Equal(t, testCase.expectedSpeed, speed)
			}
		})
	}
}
