package scrubber

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePointerLine(t *testing.T) {
	type testCase struct {
		givenLine       string
		expectedOK      bool
		expectedPressed bool
		expectedX       float64
		expectedY       float64
	}

	testCases := map[string]testCase{
		"pressed": {
			givenLine:       "1|153|15\r\n",
			expectedOK:      true,
			expectedPressed: true,
			expectedX:       153,
			expectedY:       15,
		},
		"released": {
			givenLine:  "0|20|4",
			expectedOK: true,
			expectedX:  20,
			expectedY:  4,
		},
		"negative-offset": {
			givenLine:       "1|-12|-180\n",
			expectedOK:      true,
			expectedPressed: true,
			expectedX:       -12,
			expectedY:       -180,
		},
		"bad-pressed-flag": {
			givenLine: "2|153|15\r\n",
		},
		"missing-coordinate": {
			givenLine: "1|153\r\n",
		},
		"too-many-digits": {
			givenLine: "1|123456|15\r\n",
		},
		"half-line": {
			givenLine: "|153|15\r\n",
		},
		"gibberish": {
			givenLine: "UwU",
		},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			pressed, x, y, ok := parsePointerLine(testCase.givenLine)

			assert.Equal(t, testCase.expectedOK, ok)
			assert.Equal(t, testCase.expectedPressed, pressed)
			assert.Equal(t, testCase.expectedX, x)
			assert.Equal(t, testCase.expectedY, y)
		})
	}
}

func TestPointerTracker_feed(t *testing.T) {
	type sample struct {
		pressed bool
		x, y    float64
	}

	type testCase struct {
		samples        []sample
		expectedPhases []PointerPhase
	}

	testCases := map[string]testCase{
		"press-drag-release": {
			samples:        []sample{{true, 10, 10}, {true, 20, 10}, {false, 20, 10}},
			expectedPhases: []PointerPhase{PointerDown, PointerMove, PointerUp},
		},
		"duplicate-move-dropped": {
			samples:        []sample{{true, 10, 10}, {true, 10, 10}, {true, 11, 10}},
			expectedPhases: []PointerPhase{PointerDown, PointerMove},
		},
		"hover-ignored": {
			samples:        []sample{{false, 10, 10}, {false, 30, 10}},
			expectedPhases: []PointerPhase{},
		},
		"press-after-hover": {
			samples:        []sample{{false, 10, 10}, {true, 10, 10}},
			expectedPhases: []PointerPhase{PointerDown},
		},
	}

	for testName, testCase := range testCases {
		t.Run(testName, func(t *testing.T) {
			tracker := newPointerTracker("test")
			phases := []PointerPhase{}

			for _, s := range testCase.samples {
				if event, ok := tracker.feed(s.pressed, s.x, s.y); ok {
					assert.Equal(t, "test", event.Source)
					assert.Equal(t, s.x, event.X)
					assert.Equal(t, s.y, event.Y)

					phases = append(phases, event.Phase)
				}
			}

			assert.Equal(t, testCase.expectedPhases, phases)
		})
	}
}

func TestPointerTracker_cancel(t *testing.T) {
	tracker := newPointerTracker("test")

	_, ok := tracker.cancel()
	assert.False(t, ok, "nothing to cancel while up")

	tracker.feed(true, 10, 10)
	tracker.feed(true, 42, 7)

	event, ok := tracker.cancel()
	assert.True(t, ok)
	assert.Equal(t, PointerCancel, event.Phase)
	assert.Equal(t, 42.0, event.X)
	assert.Equal(t, 7.0, event.Y)

	_, ok = tracker.cancel()
	assert.False(t, ok, "cancel only fires once")

	event, ok = tracker.feed(true, 42, 7)
	assert.True(t, ok)
	assert.Equal(t, PointerDown, event.Phase, "a fresh press starts over")
}

func TestPointerPhase_String(t *testing.T) {
	assert.Equal(t, "down", PointerDown.String())
	assert.Equal(t, "move", PointerMove.String())
	assert.Equal(t, "up", PointerUp.String())
	assert.Equal(t, "cancel", PointerCancel.String())
	assert.Equal(t, "phase(9)", PointerPhase(9).String())
}
