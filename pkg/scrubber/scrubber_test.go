package scrubber

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
)

// newHeadlessScrubber builds a scrubber with no terminal, configured from contents
func newHeadlessScrubber(t *testing.T, contents string) *Scrubber {
	t.Helper()

	s := &Scrubber{
		logger:          zap.S(),
		notifier:        &recordingNotifier{},
		config:          newTestConfig(t, contents),
		scrubbing:       slider.New(),
		plain:           slider.New(),
		stopChannel:     make(chan bool),
		resetChannel:    make(chan bool),
		snapshotChannel: make(chan chan stateSnapshot),
	}

	s.driver = newPointerDriver(s.logger, false, s.scrubbing)
	s.applyConfig()
	s.scrubbing.SetValue(s.config.InitialValue)

	return s
}

func TestScrubber_applyConfig(t *testing.T) {
	s := newHeadlessScrubber(t, `
minimum_value: -100
maximum_value: 100
initial_value: 25
continuous: false
scrubbing_speeds: [1, 0.2]
scrubbing_speed_change_positions: [0, 30]
slider_width: 400
slider_height: 40
thumb_width: 20
thumb_height: 20
hit_slop: 4
`)

	for _, sl := range []*slider.Slider{s.scrubbing, s.plain} {
		assert.Equal(t, -100.0, sl.MinimumValue())
		assert.Equal(t, 100.0, sl.MaximumValue())
		assert.False(t, sl.Continuous())
	}

	assert.Equal(t, 25.0, s.scrubbing.Value())
	assert.Equal(t, []float64{1, 0.2}, s.scrubbing.ScrubbingSpeeds())
	assert.Equal(t, []float64{0, 30}, s.scrubbing.ScrubbingSpeedChangePositions())
	assert.Equal(t, 1.0, s.scrubbing.ScrubbingSpeed())
	assert.Equal(t, slider.Rect{Width: 400, Height: 40}, s.scrubbing.Bounds())
	assert.Equal(t, 20.0, s.scrubbing.ThumbRect().Width)
}

func TestScrubber_applyConfigKeepsSavedTiers(t *testing.T) {
	s := &Scrubber{
		logger:    zap.S(),
		config:    newTestConfig(t, "initial_value: 10\n"),
		scrubbing: slider.NewFromRecord(slider.Record{Speeds: []float64{0.8, 0.4}}),
		plain:     slider.New(),
	}

	s.applyConfig()

	assert.Equal(t, []float64{0.8, 0.4}, s.scrubbing.ScrubbingSpeeds(), "config without tiers leaves saved ones alone")
}

func TestScrubber_handlePointerOffsetsDeviceInput(t *testing.T) {
	s := newHeadlessScrubber(t, "initial_value: 500\n")

	// a device reports coordinates relative to the control, wherever it sits on the surface
	s.scrubbing.SetBounds(slider.Rect{X: 50, Y: 200, Width: 320, Height: 31})
	center := s.scrubbing.ThumbRect().Center()

	s.handlePointer(PointerEvent{
		Phase:  PointerDown,
		X:      center.X - 50,
		Y:      center.Y - 200,
		Source: serialSourceName,
	})

	assert.True(t, s.scrubbing.Tracking())

	s.handlePointer(PointerEvent{Phase: PointerUp, Source: serialSourceName})
	assert.False(t, s.scrubbing.Tracking())
}

func TestScrubber_resetValue(t *testing.T) {
	s := newHeadlessScrubber(t, "initial_value: 300\n")

	s.scrubbing.SetValue(900)
	s.resetValue()
	assert.Equal(t, 300.0, s.scrubbing.Value())

	// not while someone is dragging
	s.scrubbing.SetValue(900)
	center := s.scrubbing.ThumbRect().Center()
	s.driver.handle(PointerEvent{Phase: PointerDown, X: center.X, Y: center.Y, Source: udpSourceName})
	require.True(t, s.driver.tracking())

	s.resetValue()
	assert.Equal(t, 900.0, s.scrubbing.Value())
}

func TestScrubber_loop(t *testing.T) {
	s := newHeadlessScrubber(t, "initial_value: 500\nslider_width: 200\nslider_height: 31\n")

	ended := 0
	s.scrubbing.SetListener(slider.ListenerFuncs{
		EndScrubbing: func(*slider.Slider) { ended++ },
	})

	inputs := loopInputs{
		udpEvents:      make(chan PointerEvent),
		configReloaded: make(chan bool),
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan bool)

	go func() {
		defer close(loopDone)
		s.loop(ctx, inputs)
	}()

	// thumb centre of a 200x31 control at value 500 of [0, 1000]
	inputs.udpEvents <- PointerEvent{Phase: PointerDown, X: 100, Y: 15.5, Source: udpSourceName}
	inputs.udpEvents <- PointerEvent{Phase: PointerMove, X: 110, Y: 15.5, Source: udpSourceName}

	reply := make(chan stateSnapshot, 1)
	s.snapshotChannel <- reply

	snapshot := <-reply
	assert.True(t, snapshot.Scrubbing)
	assert.Greater(t, snapshot.Value, 500.0)

	// stopping mid-drag settles the slider
	cancel()

	select {
	case <-loopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("loop didn't stop")
	}

	assert.Equal(t, 1, ended)
	assert.False(t, s.scrubbing.Tracking())
}

func TestScrubber_loopHoldsConfigReloadUntilDragEnds(t *testing.T) {
	s := newHeadlessScrubber(t, `
initial_value: 500
slider_width: 200
slider_height: 31
scrubbing_speeds: [1, 0.5, 0.25, 0.1]
scrubbing_speed_change_positions: [0, 50, 100, 150]
`)

	speeds := []float64{}
	s.scrubbing.SetListener(slider.ListenerFuncs{
		ChangeScrubbingSpeed: func(_ *slider.Slider, speed float64) { speeds = append(speeds, speed) },
	})

	inputs := loopInputs{
		udpEvents:      make(chan PointerEvent),
		configReloaded: make(chan bool),
	}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan bool)

	go func() {
		defer close(loopDone)
		s.loop(ctx, inputs)
	}()

	t.Cleanup(func() {
		cancel()
		<-loopDone
	})

	snapshot := func() stateSnapshot {
		reply := make(chan stateSnapshot, 1)
		s.snapshotChannel <- reply

		return <-reply
	}

	// grab the thumb and drag far enough away for the slowest tier
	inputs.udpEvents <- PointerEvent{Phase: PointerDown, X: 100, Y: 15.5, Source: udpSourceName}
	inputs.udpEvents <- PointerEvent{Phase: PointerMove, X: 100, Y: 215.5, Source: udpSourceName}
	require.Equal(t, 0.1, snapshot().ScrubbingSpeed)

	// written before the unbuffered send, so the loop sees it whenever it applies the reload
	s.config.ScrubbingSpeeds = []float64{1, 0.2}
	s.config.ScrubbingSpeedChangePositions = []float64{0, 30}
	s.config.Range.Maximum = 2000
	inputs.configReloaded <- true

	inputs.udpEvents <- PointerEvent{Phase: PointerMove, X: 110, Y: 215.5, Source: udpSourceName}

	during := snapshot()
	assert.True(t, during.Scrubbing)
	assert.Equal(t, 0.1, during.ScrubbingSpeed)
	assert.Equal(t, 1000.0, during.MaximumValue, "range stays put mid-drag")
	assert.Equal(t, []float64{1, 0.5, 0.25, 0.1}, during.Record.Speeds)
	assert.Equal(t, []float64{1, 0.1}, speeds, "no repeated speed change after the reload")

	inputs.udpEvents <- PointerEvent{Phase: PointerUp, X: 110, Y: 215.5, Source: udpSourceName}

	after := snapshot()
	assert.False(t, after.Scrubbing)
	assert.Equal(t, 1.0, after.ScrubbingSpeed)
	assert.Equal(t, 2000.0, after.MaximumValue)
	assert.Equal(t, []float64{1, 0.2}, after.Record.Speeds)
	assert.Equal(t, []float64{0, 30}, after.Record.ChangePositions)
	assert.Equal(t, []float64{1, 0.1}, speeds)
}

func TestScrubber_loopAppliesConfigReloadWhenIdle(t *testing.T) {
	s := newHeadlessScrubber(t, "initial_value: 500\n")

	inputs := loopInputs{configReloaded: make(chan bool)}

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan bool)

	go func() {
		defer close(loopDone)
		s.loop(ctx, inputs)
	}()

	t.Cleanup(func() {
		cancel()
		<-loopDone
	})

	s.config.ScrubbingSpeeds = []float64{0.8, 0.4}
	inputs.configReloaded <- true

	reply := make(chan stateSnapshot, 1)
	s.snapshotChannel <- reply
	snapshot := <-reply

	assert.Equal(t, []float64{0.8, 0.4}, snapshot.Record.Speeds)
	assert.Equal(t, 0.8, snapshot.ScrubbingSpeed)
}
