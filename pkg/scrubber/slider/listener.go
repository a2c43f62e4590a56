package slider

// Listener receives scrubbing notifications. Calls are made synchronously from
// inside Begin, Continue and Settle, so implementations must not block
type Listener interface {
	SliderDidBeginScrubbing(s *Slider)
	SliderDidEndScrubbing(s *Slider)
	SliderDidChangeScrubbingSpeed(s *Slider, speed float64)
}

// NopListener ignores every notification. Embed it to implement only the callbacks you need
type NopListener struct{}

// SliderDidBeginScrubbing implements Listener
func (NopListener) SliderDidBeginScrubbing(*Slider) {}

// SliderDidEndScrubbing implements Listener
func (NopListener) SliderDidEndScrubbing(*Slider) {}

// SliderDidChangeScrubbingSpeed implements Listener
func (NopListener) SliderDidChangeScrubbingSpeed(*Slider, float64) {}

// ListenerFuncs adapts optional functions to a Listener; nil fields are skipped
type ListenerFuncs struct {
	BeginScrubbing       func(s *Slider)
	EndScrubbing         func(s *Slider)
	ChangeScrubbingSpeed func(s *Slider, speed float64)
}

// SliderDidBeginScrubbing implements Listener
func (lf ListenerFuncs) SliderDidBeginScrubbing(s *Slider) {
	if lf.BeginScrubbing != nil {
		lf.BeginScrubbing(s)
	}
}

// SliderDidEndScrubbing implements Listener
func (lf ListenerFuncs) SliderDidEndScrubbing(s *Slider) {
	if lf.EndScrubbing != nil {
		lf.EndScrubbing(s)
	}
}

// SliderDidChangeScrubbingSpeed implements Listener
func (lf ListenerFuncs) SliderDidChangeScrubbingSpeed(s *Slider, speed float64) {
	if lf.ChangeScrubbingSpeed != nil {
		lf.ChangeScrubbingSpeed(s, speed)
	}
}

// Listeners fans every notification out to each member in order
type Listeners []Listener

// SliderDidBeginScrubbing implements Listener
func (ls Listeners) SliderDidBeginScrubbing(s *Slider) {
	for _, l := range ls {
		l.SliderDidBeginScrubbing(s)
	}
}

// SliderDidEndScrubbing implements Listener
func (ls Listeners) SliderDidEndScrubbing(s *Slider) {
	for _, l := range ls {
		l.SliderDidEndScrubbing(s)
	}
}

// SliderDidChangeScrubbingSpeed implements Listener
func (ls Listeners) SliderDidChangeScrubbingSpeed(s *Slider, speed float64) {
	for _, l := range ls {
		l.SliderDidChangeScrubbingSpeed(s, speed)
	}
}
