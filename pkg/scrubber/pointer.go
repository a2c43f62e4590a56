package scrubber

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
)

// PointerPhase tells where in a press-drag-release interaction a pointer event sits
type PointerPhase int

// Pointer phases
const (
	PointerDown PointerPhase = iota
	PointerMove
	PointerUp
	PointerCancel
)

func (p PointerPhase) String() string {
	switch p {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerCancel:
		return "cancel"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// PointerEvent is a single pointer sample, in control-local surface units
type PointerEvent struct {
	Phase  PointerPhase
	X      float64
	Y      float64
	Source string
}

// Location returns the event's position as a slider point
func (pe PointerEvent) Location() slider.Point {
	return slider.Point{X: pe.X, Y: pe.Y}
}

// PointerSource is anything that can feed pointer events to scrubber
type PointerSource interface {
	Start() error
	Stop()
	SubscribeToPointerEvents() chan PointerEvent
}

// pointerTracker turns button-state samples into pointer phases, the way a
// toolkit would: press -> down, held and moved -> move, release -> up
type pointerTracker struct {
	source string

	down  bool
	lastX float64
	lastY float64
}

func newPointerTracker(source string) *pointerTracker {
	return &pointerTracker{source: source}
}

// feed takes one sample and returns the event it produces, if any
func (pt *pointerTracker) feed(pressed bool, x, y float64) (PointerEvent, bool) {
	event := PointerEvent{X: x, Y: y, Source: pt.source}

	switch {
	case pressed && !pt.down:
		pt.down = true
		event.Phase = PointerDown

	case pressed && pt.down:
		if x == pt.lastX && y == pt.lastY {
			return PointerEvent{}, false
		}

		event.Phase = PointerMove

	case !pressed && pt.down:
		pt.down = false
		event.Phase = PointerUp

	default:
		// hovering, nothing to track
		pt.lastX, pt.lastY = x, y
		return PointerEvent{}, false
	}

	pt.lastX, pt.lastY = x, y

	return event, true
}

// cancel ends an interaction that lost its input (disconnect, focus loss)
func (pt *pointerTracker) cancel() (PointerEvent, bool) {
	if !pt.down {
		return PointerEvent{}, false
	}

	pt.down = false

	return PointerEvent{Phase: PointerCancel, X: pt.lastX, Y: pt.lastY, Source: pt.source}, true
}

// device lines look like "1|153|-20": pressed flag, then x and y in whole surface units
var expectedPointerLinePattern = regexp.MustCompile(`^[01]\|-?\d{1,5}\|-?\d{1,5}$`)

// parsePointerLine decodes one device line. Trailing line endings are ignored
func parsePointerLine(line string) (pressed bool, x float64, y float64, ok bool) {
	line = strings.TrimRight(line, "\r\n")

	if !expectedPointerLinePattern.MatchString(line) {
		return false, 0, 0, false
	}

	splitLine := strings.Split(line, "|")

	// the pattern already guarantees these parse
	xValue, _ := strconv.Atoi(splitLine[1])
	yValue, _ := strconv.Atoi(splitLine[2])

	return splitLine[0] == "1", float64(xValue), float64(yValue), true
}
