// Package slider implements a variable-speed scrubbing slider: a continuous
// value control whose drag sensitivity drops as the pointer moves vertically
// away from the track. It has no UI toolkit dependency; an adapter forwards
// pointer events to Begin, Continue and Settle.
package slider

import (
	"math"

	"go.uber.org/zap"
)

var (
	defaultScrubbingSpeeds               = []float64{1.0, 0.5, 0.25, 0.1}
	defaultScrubbingSpeedChangePositions = []float64{0.0, 50.0, 100.0, 150.0}
)

const (
	defaultMaximumValue = 1.0
	defaultHitSlop      = 10.0
)

// Slider is a scrubbing slider. It is not safe for concurrent use; all calls
// are expected to come from the goroutine that dispatches pointer events
type Slider struct {
	value        float64
	minimumValue float64
	maximumValue float64
	continuous   bool

	bounds   Rect
	geometry Geometry
	hitSlop  float64

	scrubbingSpeed                float64
	scrubbingSpeeds               []float64
	scrubbingSpeedChangePositions []float64

	listener             Listener
	valueChangedHandlers []func(*Slider)
	logger               *zap.SugaredLogger

	// tracking session
	tracking              bool
	beganTrackingLocation Point
	realPositionValue     float64
}

// New creates a slider with range [0, 1], continuous reporting and the default speed tiers
func New() *Slider {
	return &Slider{
		maximumValue:                  defaultMaximumValue,
		continuous:                    true,
		geometry:                      DefaultGeometry,
		hitSlop:                       defaultHitSlop,
		scrubbingSpeed:                defaultScrubbingSpeeds[0],
		scrubbingSpeeds:               copyFloats(defaultScrubbingSpeeds),
		scrubbingSpeedChangePositions: copyFloats(defaultScrubbingSpeedChangePositions),
		listener:                      NopListener{},
		logger:                        zap.NewNop().Sugar(),
	}
}

// NewFromRecord creates a slider and restores its speed configuration from a persisted record
func NewFromRecord(record Record) *Slider {
	s := New()
	s.Restore(record)

	return s
}

// SetLogger attaches a logger for debug output
func (s *Slider) SetLogger(logger *zap.SugaredLogger) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s.logger = logger.Named("slider")
}

// SetListener sets the notification sink. nil restores the no-op listener
func (s *Slider) SetListener(listener Listener) {
	if listener == nil {
		listener = NopListener{}
	}

	s.listener = listener
}

// OnValueChanged registers a handler called whenever the slider reports a value change
func (s *Slider) OnValueChanged(handler func(*Slider)) {
	s.valueChangedHandlers = append(s.valueChangedHandlers, handler)
}

// Value returns the current value
func (s *Slider) Value() float64 {
	return s.value
}

// SetValue assigns the value, clamped into the slider's range
func (s *Slider) SetValue(value float64) {
	s.value = s.clamp(value)
}

// MinimumValue returns the lower range bound
func (s *Slider) MinimumValue() float64 {
	return s.minimumValue
}

// MaximumValue returns the upper range bound
func (s *Slider) MaximumValue() float64 {
	return s.maximumValue
}

// SetRange sets both range bounds and re-clamps the value. Swapped bounds are reordered
func (s *Slider) SetRange(minimum, maximum float64) {
	if minimum > maximum {
		minimum, maximum = maximum, minimum
	}

	s.minimumValue = minimum
	s.maximumValue = maximum
	s.value = s.clamp(s.value)
}

// Continuous reports whether value changes are reported on every tracking step
func (s *Slider) Continuous() bool {
	return s.continuous
}

// SetContinuous controls whether value changes are reported on every step or only when settling
func (s *Slider) SetContinuous(continuous bool) {
	s.continuous = continuous
}

// Bounds returns the control's rectangle
func (s *Slider) Bounds() Rect {
	return s.bounds
}

// SetBounds sets the control's rectangle
func (s *Slider) SetBounds(bounds Rect) {
	s.bounds = bounds
}

// SetGeometry replaces the track and thumb layout. nil restores DefaultGeometry
func (s *Slider) SetGeometry(geometry Geometry) {
	if geometry == nil {
		geometry = DefaultGeometry
	}

	s.geometry = geometry
}

// SetHitSlop sets how far outside the thumb a pointer-down still grabs it
func (s *Slider) SetHitSlop(slop float64) {
	s.hitSlop = math.Max(slop, 0)
}

// TrackRect returns the track rectangle for the current bounds
func (s *Slider) TrackRect() Rect {
	return s.geometry.TrackRect(s.bounds)
}

// ThumbRect returns the thumb rectangle for the current bounds and value
func (s *Slider) ThumbRect() Rect {
	return s.geometry.ThumbRect(s.bounds, s.TrackRect(), s.value, s.minimumValue, s.maximumValue)
}

// HitTest reports whether a pointer-down at p would grab the thumb
func (s *Slider) HitTest(p Point) bool {
	return s.ThumbRect().Inset(-s.hitSlop, -s.hitSlop).Contains(p)
}

// ScrubbingSpeed returns the multiplier currently applied to horizontal movement
func (s *Slider) ScrubbingSpeed() float64 {
	return s.scrubbingSpeed
}

// ScrubbingSpeeds returns a copy of the speed tiers
func (s *Slider) ScrubbingSpeeds() []float64 {
	return copyFloats(s.scrubbingSpeeds)
}

// SetScrubbingSpeeds replaces the speed tiers. The first tier is the full speed used when idle,
// so an idle slider switches to it right away; mid-drag the next Continue picks the tier
func (s *Slider) SetScrubbingSpeeds(speeds []float64) {
	s.scrubbingSpeeds = copyFloats(speeds)
	s.syncIdleSpeed()
}

// syncIdleSpeed puts an idle slider back on its first tier, if it has one
func (s *Slider) syncIdleSpeed() {
	if !s.tracking && len(s.scrubbingSpeeds) > 0 {
		s.scrubbingSpeed = s.scrubbingSpeeds[0]
	}
}

// ScrubbingSpeedChangePositions returns a copy of the tier thresholds
func (s *Slider) ScrubbingSpeedChangePositions() []float64 {
	return copyFloats(s.scrubbingSpeedChangePositions)
}

// SetScrubbingSpeedChangePositions replaces the vertical offsets at which the next slower tier begins
func (s *Slider) SetScrubbingSpeedChangePositions(positions []float64) {
	s.scrubbingSpeedChangePositions = copyFloats(positions)
}

// Tracking reports whether a tracking session is active
func (s *Slider) Tracking() bool {
	return s.tracking
}

// Begin starts a tracking session if touch lands on the thumb and no session is active.
// It returns whether the session was accepted
func (s *Slider) Begin(touch Point) bool {
	if s.tracking || !s.HitTest(touch) {
		return false
	}

	s.tracking = true

	// anchor on the thumb rather than the touch, so that coming back to the track
	// after scrubbing slowly lines the pointer up with where the thumb really is
	s.beganTrackingLocation = s.ThumbRect().Center()
	s.realPositionValue = s.value

	s.logger.Debugw("Began scrubbing",
		"value", s.value,
		"anchor", s.beganTrackingLocation,
		"speed", s.scrubbingSpeed)

	s.listener.SliderDidBeginScrubbing(s)
	s.listener.SliderDidChangeScrubbingSpeed(s, s.scrubbingSpeed)

	return true
}

// Continue applies one pointer movement from previous to current. It returns whether the slider is tracking
func (s *Slider) Continue(previous, current Point) bool {
	if !s.tracking {
		return false
	}

	trackingOffset := current.X - previous.X
	verticalOffset := math.Abs(current.Y - s.beganTrackingLocation.Y)

	if newSpeed, ok := SpeedForOffset(s.scrubbingSpeeds, s.scrubbingSpeedChangePositions, verticalOffset); ok {
		if newSpeed != s.scrubbingSpeed {
			s.logger.Debugw("Scrubbing speed changed",
				"from", s.scrubbingSpeed,
				"to", newSpeed,
				"verticalOffset", verticalOffset)

			s.listener.SliderDidChangeScrubbingSpeed(s, newSpeed)
		}

		s.scrubbingSpeed = newSpeed
	}

	trackWidth := s.TrackRect().Width
	if trackWidth <= 0 {
		return s.tracking
	}

	valueRange := s.maximumValue - s.minimumValue
	s.realPositionValue += valueRange * (trackingOffset / trackWidth)

	valueAdjustment := s.scrubbingSpeed * valueRange * (trackingOffset / trackWidth)

	thumbAdjustment := 0.0
	anchorY := s.beganTrackingLocation.Y
	if (anchorY < current.Y && current.Y < previous.Y) ||
		(anchorY > current.Y && current.Y > previous.Y) {

		// heading back towards the track: pull the thumb towards the full-speed position
		thumbAdjustment = (s.realPositionValue - s.value) / (1.0 + verticalOffset)
	}

	s.SetValue(s.value + valueAdjustment + thumbAdjustment)

	if s.continuous {
		s.sendValueChanged()
	}

	return s.tracking
}

// Settle ends the tracking session: the speed returns to the first tier, a final
// value change is reported, then the end of scrubbing. Calling it while idle does nothing
func (s *Slider) Settle() {
	if !s.tracking {
		return
	}

	if len(s.scrubbingSpeeds) > 0 {
		s.scrubbingSpeed = s.scrubbingSpeeds[0]
	}

	s.tracking = false

	s.logger.Debugw("Ended scrubbing", "value", s.value)

	s.sendValueChanged()
	s.listener.SliderDidEndScrubbing(s)
}

func (s *Slider) sendValueChanged() {
	for _, handler := range s.valueChangedHandlers {
		handler(s)
	}
}

func (s *Slider) clamp(value float64) float64 {
	if math.IsNaN(value) {
		return s.minimumValue
	}

	return math.Min(math.Max(value, s.minimumValue), s.maximumValue)
}

func copyFloats(values []float64) []float64 {
	if values == nil {
		return nil
	}

	result := make([]float64, len(values))
	copy(result, values)

	return result
}
