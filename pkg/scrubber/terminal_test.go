package scrubber

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
)

func newTestTerminal(t *testing.T, s *Scrubber) (*Terminal, tcell.SimulationScreen) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)

	term := &Terminal{
		scrubber:         s,
		logger:           zap.S(),
		screen:           screen,
		cellWidth:        defaultCellWidth,
		cellHeight:       defaultCellHeight,
		tracker:          newPointerTracker(terminalSourceName),
		pointerConsumers: []chan PointerEvent{},
		resizeConsumers:  []chan bool{},
	}

	return term, screen
}

func rowText(screen tcell.SimulationScreen, row int) string {
	cells, width, _ := screen.GetContents()

	var sb strings.Builder
	for col := 0; col < width; col++ {
		runes := cells[row*width+col].Runes
		if len(runes) == 0 {
			sb.WriteRune(' ')
			continue
		}

		sb.WriteRune(runes[0])
	}

	return sb.String()
}

func TestTerminal_layout(t *testing.T) {
	term, _ := newTestTerminal(t, &Scrubber{})

	scrubbing := slider.New()
	plain := slider.New()

	term.layout(scrubbing, plain)

	assert.Equal(t, slider.Rect{X: 16, Y: 80, Width: 512, Height: 16}, scrubbing.Bounds())
	assert.Equal(t, slider.Rect{X: 16, Y: 352, Width: 512, Height: 16}, plain.Bounds())

	// thumb is one cell wide and one cell tall
	thumb := scrubbing.ThumbRect()
	assert.Equal(t, 8.0, thumb.Width)
	assert.Equal(t, 16.0, thumb.Height)
}

func TestTerminal_cellToSurface(t *testing.T) {
	term, _ := newTestTerminal(t, &Scrubber{})

	x, y := term.cellToSurface(2, 5)
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 88.0, y)
	assert.Equal(t, 2, term.surfaceToColumn(x))

	term.setCellSize(10, 20)

	x, y = term.cellToSurface(0, 0)
	assert.Equal(t, 5.0, x)
	assert.Equal(t, 10.0, y)
}

func TestTerminal_draw(t *testing.T) {
	term, screen := newTestTerminal(t, &Scrubber{})

	scrubbing := slider.New()
	scrubbing.SetRange(0, 1000)
	scrubbing.SetValue(500)

	plain := slider.New()
	plain.SetRange(0, 1000)
	plain.SetValue(250)

	term.layout(scrubbing, plain)
	term.draw(scrubbing, plain)

	assert.Contains(t, rowText(screen, valueLabelRow), "Value: 500")
	assert.Contains(t, rowText(screen, speedLabelRow), "Scrubbing Speed: 100%")
	assert.Contains(t, rowText(screen, scrubbingSliderRow), "●")
	assert.Contains(t, rowText(screen, plainSliderRow(24)-1), "Plain slider: 250")

	// one legend marker per tier, at 0, 50, 100 and 150 units (rows 5, 9, 12, 15)
	assert.Contains(t, rowText(screen, scrubbingSliderRow), "▸ 100%")
	assert.Contains(t, rowText(screen, scrubbingSliderRow+4), "▸ 50%")
	assert.Contains(t, rowText(screen, scrubbingSliderRow+7), "▸ 25%")
	assert.Contains(t, rowText(screen, scrubbingSliderRow+10), "▸ 10%")
}

func TestTerminal_pollMouse(t *testing.T) {
	term, screen := newTestTerminal(t, &Scrubber{})
	events := term.SubscribeToPointerEvents()

	screen.EnableMouse()
	go term.poll()
	t.Cleanup(term.Stop)

	screen.InjectMouse(10, 5, tcell.Button1, tcell.ModNone)
	screen.InjectMouse(12, 5, tcell.Button1, tcell.ModNone)
	screen.InjectMouse(12, 5, tcell.ButtonNone, tcell.ModNone)

	expected := []PointerEvent{
		{Phase: PointerDown, X: 84, Y: 88, Source: terminalSourceName},
		{Phase: PointerMove, X: 100, Y: 88, Source: terminalSourceName},
		{Phase: PointerUp, X: 100, Y: 88, Source: terminalSourceName},
	}

	for _, expectedEvent := range expected {
		select {
		case event := <-events:
			assert.Equal(t, expectedEvent, event)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %v", expectedEvent.Phase)
		}
	}
}

func TestTerminal_quitKey(t *testing.T) {
	s := &Scrubber{logger: zap.S(), stopChannel: make(chan bool)}
	term, screen := newTestTerminal(t, s)

	go term.poll()
	t.Cleanup(term.Stop)

	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case stop := <-s.stopChannel:
		assert.True(t, stop)
	case <-time.After(2 * time.Second):
		t.Fatal("quit key didn't signal a stop")
	}
}
