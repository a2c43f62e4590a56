package scrubber

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
)

const (
	cueSampleRate = beep.SampleRate(44100)

	cueToneLength  = 60 * time.Millisecond
	cueClickLength = 15 * time.Millisecond

	// full speed sounds at cueTopFrequency, slower tiers drop towards cueBaseFrequency
	cueBaseFrequency  = 220.0
	cueTopFrequency   = 880.0
	cueClickFrequency = 1760.0

	cueVolume = -1.5
)

// speedCue plays a short tone whenever the scrubbing speed changes,
// lower for finer speeds, so tiers can be felt without looking at the screen
type speedCue struct {
	logger *zap.SugaredLogger
}

func newSpeedCue(logger *zap.SugaredLogger) (*speedCue, error) {
	logger = logger.Named("audio")

	if err := speaker.Init(cueSampleRate, cueSampleRate.N(time.Second/10)); err != nil {
		logger.Warnw("Failed to initialize speaker", "error", err)
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	logger.Debug("Created speed cue instance")

	return &speedCue{logger: logger}, nil
}

// cueFrequency maps a scrubbing speed to a tone
func cueFrequency(speed float64) float64 {
	if speed < 0 {
		speed = 0
	}
	if speed > 1 {
		speed = 1
	}

	return cueBaseFrequency + (cueTopFrequency-cueBaseFrequency)*speed
}

func (sc *speedCue) play(frequency float64, length time.Duration) {
	tone, err := generators.SineTone(cueSampleRate, frequency)
	if err != nil {
		sc.logger.Warnw("Failed to generate tone", "frequency", frequency, "error", err)
		return
	}

	speaker.Play(&effects.Volume{
		Streamer: beep.Take(cueSampleRate.N(length), tone),
		Base:     2,
		Volume:   cueVolume,
	})
}

func (sc *speedCue) SliderDidBeginScrubbing(*slider.Slider) {
	sc.play(cueClickFrequency, cueClickLength)
}

func (sc *speedCue) SliderDidEndScrubbing(*slider.Slider) {
	sc.play(cueClickFrequency/2, cueClickLength)
}

func (sc *speedCue) SliderDidChangeScrubbingSpeed(_ *slider.Slider, speed float64) {
	sc.play(cueFrequency(speed), cueToneLength)
}

func (sc *speedCue) close() {
	sc.logger.Debug("Closing speaker")
	speaker.Clear()
	speaker.Close()
}
