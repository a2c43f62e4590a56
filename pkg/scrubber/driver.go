package scrubber

import (
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
)

// pointerDriver is the adapter between raw pointer events and slider tracking.
// It enforces a single active pointer: while one slider is tracking, other
// pointer-downs are dropped
type pointerDriver struct {
	logger  *zap.SugaredLogger
	verbose bool

	sliders []*slider.Slider

	active       *slider.Slider
	activeSource string
	lastLocation slider.Point
}

func newPointerDriver(logger *zap.SugaredLogger, verbose bool, sliders ...*slider.Slider) *pointerDriver {
	return &pointerDriver{
		logger:  logger.Named("driver"),
		verbose: verbose,
		sliders: sliders,
	}
}

// handle routes one event to the right tracking hook
func (pd *pointerDriver) handle(event PointerEvent) {
	if pd.verbose {
		pd.logger.Debugw("Pointer event", "event", event)
	}

	location := event.Location()

	switch event.Phase {
	case PointerDown:
		if pd.active != nil {
			pd.logger.Debugw("Ignoring pointer-down while already tracking",
				"source", event.Source,
				"activeSource", pd.activeSource)
			return
		}

		for _, s := range pd.sliders {
			if s.Begin(location) {
				pd.active = s
				pd.activeSource = event.Source
				pd.lastLocation = location
				return
			}
		}

	case PointerMove:
		if pd.active == nil || event.Source != pd.activeSource {
			return
		}

		pd.active.Continue(pd.lastLocation, location)
		pd.lastLocation = location

	case PointerUp, PointerCancel:
		if pd.active == nil || event.Source != pd.activeSource {
			return
		}

		pd.active.Settle()
		pd.active = nil
		pd.activeSource = ""
	}
}

// release settles whatever is tracking, e.g. when the source behind it goes away
func (pd *pointerDriver) release() {
	if pd.active == nil {
		return
	}

	pd.active.Settle()
	pd.active = nil
	pd.activeSource = ""
}

// tracking reports whether any slider has an active session
func (pd *pointerDriver) tracking() bool {
	return pd.active != nil
}
