package scrubber

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

const (
	terminalSourceName = "terminal"

	// rows and columns of the demo screen
	valueLabelRow      = 1
	speedLabelRow      = 2
	scrubbingTitleRow  = 4
	scrubbingSliderRow = 5
	sideMargin         = 2
	legendWidth        = 14
	minimumWidth       = sideMargin + legendWidth + 10
	minimumHeight      = scrubbingSliderRow + 5
)

var (
	styleTitle  = tcell.StyleDefault.Bold(true)
	styleLabel  = tcell.StyleDefault
	styleTrack  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleFill   = tcell.StyleDefault.Foreground(tcell.ColorDodgerBlue)
	styleThumb  = tcell.StyleDefault.Foreground(tcell.ColorDodgerBlue).Bold(true)
	styleLegend = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleActive = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// Terminal draws the demo screen with tcell and turns mouse drags into pointer events.
// Cells are converted to surface units with the configured cell size, so the speed
// tier thresholds keep their meaning
type Terminal struct {
	scrubber *Scrubber
	logger   *zap.SugaredLogger

	screen tcell.Screen

	cellWidth  float64
	cellHeight float64

	tracker *pointerTracker

	pointerConsumers []chan PointerEvent
	resizeConsumers  []chan bool

	stopOnce sync.Once
}

// NewTerminal creates a terminal front end. The screen is only taken over in Start
func NewTerminal(scrubber *Scrubber, logger *zap.SugaredLogger) (*Terminal, error) {
	logger = logger.Named(terminalSourceName)

	screen, err := tcell.NewScreen()
	if err != nil {
		logger.Warnw("Failed to create terminal screen", "error", err)
		return nil, fmt.Errorf("create terminal screen: %w", err)
	}

	t := &Terminal{
		scrubber:         scrubber,
		logger:           logger,
		screen:           screen,
		cellWidth:        defaultCellWidth,
		cellHeight:       defaultCellHeight,
		tracker:          newPointerTracker(terminalSourceName),
		pointerConsumers: []chan PointerEvent{},
		resizeConsumers:  []chan bool{},
	}

	logger.Debug("Created terminal instance")

	return t, nil
}

// Start takes over the terminal and begins polling for input
func (t *Terminal) Start() error {
	if t.screen == nil {
		return errors.New("terminal: no screen")
	}

	if err := t.screen.Init(); err != nil {
		t.logger.Warnw("Failed to initialize terminal screen", "error", err)
		return fmt.Errorf("init terminal screen: %w", err)
	}

	t.screen.EnableMouse()
	t.screen.HideCursor()
	t.screen.Clear()

	t.logger.Info("Terminal screen ready")

	go t.poll()

	return nil
}

// Stop gives the terminal back to the shell
func (t *Terminal) Stop() {
	t.stopOnce.Do(func() {
		t.logger.Debug("Releasing terminal screen")
		t.screen.Fini()
	})
}

// SubscribeToPointerEvents returns an unbuffered channel that receives
// a PointerEvent for every left-button press, drag and release
func (t *Terminal) SubscribeToPointerEvents() chan PointerEvent {
	ch := make(chan PointerEvent)
	t.pointerConsumers = append(t.pointerConsumers, ch)

	return ch
}

// SubscribeToResizes returns a channel that is signalled whenever the terminal changes size
func (t *Terminal) SubscribeToResizes() chan bool {
	ch := make(chan bool, 1)
	t.resizeConsumers = append(t.resizeConsumers, ch)

	return ch
}

// setCellSize sets how many surface units one terminal cell spans
func (t *Terminal) setCellSize(width, height float64) {
	t.cellWidth = width
	t.cellHeight = height
}

func (t *Terminal) poll() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {

			// the screen was finalized
			t.cancelPointer()
			return
		}

		switch e := ev.(type) {
		case *tcell.EventMouse:
			col, row := e.Position()
			pressed := e.Buttons()&tcell.Button1 != 0
			x, y := t.cellToSurface(col, row)

			if event, ok := t.tracker.feed(pressed, x, y); ok {
				t.deliver(event)
			}

		case *tcell.EventKey:
			if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC ||
				(e.Key() == tcell.KeyRune && (e.Rune() == 'q' || e.Rune() == 'Q')) {

				t.logger.Info("Quit key pressed, stopping")
				t.cancelPointer()
				t.scrubber.signalStop()
				return
			}

			if e.Key() == tcell.KeyRune && (e.Rune() == 'r' || e.Rune() == 'R') {
				t.logger.Info("Reset key pressed")
				t.scrubber.resetChannel <- true
			}

		case *tcell.EventResize:
			t.screen.Sync()

			for _, consumer := range t.resizeConsumers {
				select {
				case consumer <- true:
				default:
				}
			}
		}
	}
}

func (t *Terminal) cancelPointer() {
	if event, ok := t.tracker.cancel(); ok {
		t.deliver(event)
	}
}

// deliver the event towards all potential consumers
func (t *Terminal) deliver(event PointerEvent) {
	for _, consumer := range t.pointerConsumers {
		consumer <- event
	}
}

// cellToSurface returns the surface-unit centre of a cell
func (t *Terminal) cellToSurface(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * t.cellWidth, (float64(row) + 0.5) * t.cellHeight
}

func (t *Terminal) surfaceToColumn(x float64) int {
	return int(math.Floor(x / t.cellWidth))
}

// plainSliderRow is where the full-speed comparison slider goes, at the bottom of the screen
func plainSliderRow(height int) int {
	return height - 2
}

// layout fits both sliders to the current terminal size
func (t *Terminal) layout(scrubbing *slider.Slider, plain *slider.Slider) {
	width, height := t.screen.Size()
	if width < minimumWidth {
		width = minimumWidth
	}
	if height < minimumHeight {
		height = minimumHeight
	}

	geometry := slider.LinearGeometry{
		TrackHeight: t.cellHeight / 8,
		ThumbWidth:  t.cellWidth,
		ThumbHeight: t.cellHeight,
	}

	trackCells := width - sideMargin - legendWidth

	for _, placement := range []struct {
		s   *slider.Slider
		row int
	}{
		{s: scrubbing, row: scrubbingSliderRow},
		{s: plain, row: plainSliderRow(height)},
	} {
		placement.s.SetGeometry(geometry)
		placement.s.SetBounds(slider.Rect{
			X:      float64(sideMargin) * t.cellWidth,
			Y:      float64(placement.row) * t.cellHeight,
			Width:  float64(trackCells) * t.cellWidth,
			Height: t.cellHeight,
		})
	}

	t.logger.Debugw("Laid out sliders", "width", width, "height", height, "trackCells", trackCells)
}

// draw renders the demo screen. Call it from the goroutine that owns the sliders
func (t *Terminal) draw(scrubbing *slider.Slider, plain *slider.Slider) {
	_, height := t.screen.Size()

	t.screen.Clear()

	t.drawText(sideMargin, valueLabelRow, styleLabel, fmt.Sprintf("Value: %.0f", scrubbing.Value()))

	speedStyle := styleLabel
	if scrubbing.Tracking() {
		speedStyle = styleActive
	}

	t.drawText(sideMargin, speedLabelRow, speedStyle,
		fmt.Sprintf("Scrubbing Speed: %s", util.FormatPercent(scrubbing.ScrubbingSpeed())))

	t.drawText(sideMargin, scrubbingTitleRow, styleTitle, "Scrubbing slider (drag, then move away vertically)")
	t.drawSlider(scrubbing, scrubbingSliderRow)
	t.drawLegend(scrubbing, height)

	plainRow := plainSliderRow(height)
	t.drawText(sideMargin, plainRow-1, styleTitle, fmt.Sprintf("Plain slider: %.0f", plain.Value()))
	t.drawSlider(plain, plainRow)

	t.screen.Show()
}

func (t *Terminal) drawSlider(s *slider.Slider, row int) {
	track := s.TrackRect()
	thumbColumn := t.surfaceToColumn(s.ThumbRect().Center().X)

	firstColumn := t.surfaceToColumn(track.X)
	lastColumn := t.surfaceToColumn(track.X+track.Width) - 1

	for col := firstColumn; col <= lastColumn; col++ {
		style := styleTrack
		if col < thumbColumn {
			style = styleFill
		}

		t.screen.SetContent(col, row, '─', nil, style)
	}

	t.screen.SetContent(thumbColumn, row, '●', nil, styleThumb)
}

// drawLegend marks, on the right margin, the row at which each speed zone starts
func (t *Terminal) drawLegend(s *slider.Slider, height int) {
	legendColumn := t.surfaceToColumn(s.Bounds().X+s.Bounds().Width) + 2
	speeds := s.ScrubbingSpeeds()
	positions := s.ScrubbingSpeedChangePositions()

	previous := math.NaN()
	for row := scrubbingSliderRow; row < plainSliderRow(height)-2; row++ {
		offset := float64(row-scrubbingSliderRow) * t.cellHeight

		speed, ok := slider.SpeedForOffset(speeds, positions, offset)
		if !ok || speed == previous {
			continue
		}

		previous = speed

		style := styleLegend
		if s.Tracking() && speed == s.ScrubbingSpeed() {
			style = styleActive
		}

		t.drawText(legendColumn, row, style, fmt.Sprintf("▸ %s", util.FormatPercent(speed)))
	}
}

func (t *Terminal) drawText(col, row int, style tcell.Style, text string) {
	for _, r := range text {
		t.screen.SetContent(col, row, r, nil, style)
		col++
	}
}
