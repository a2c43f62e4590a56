// Package scrubber hosts a variable-speed scrubbing slider: it feeds the slider
// with pointer input from a terminal, a serial touch strip or UDP, and reports
// what happens through the screen, a websocket and audio cues
package scrubber

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/slider"
	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

const (

	// when this is set to anything, scrubber won't use a tray icon
	envNoTray = "SCRUBBER_NO_TRAY_ICON"
)

// Scrubber is the main entity managing access to all sub-components
type Scrubber struct {
	logger   *zap.SugaredLogger
	notifier Notifier
	config   *CanonicalConfig
	prefs    preferences

	// both sliders are owned by the event loop once it runs
	scrubbing *slider.Slider
	plain     *slider.Slider
	driver    *pointerDriver

	// a config reload that arrived mid-drag, applied once the drag ends
	configPending bool

	serial    *SerialIO
	udp       *UdpIO
	terminal  *Terminal
	websocket *WebsocketServer
	cue       *speedCue

	stopChannel     chan bool
	resetChannel    chan bool
	snapshotChannel chan chan stateSnapshot

	version     string
	verbose     bool
	interactive bool
}

// NewScrubber creates a Scrubber instance. interactive runs the terminal demo screen
func NewScrubber(logger *zap.SugaredLogger, verbose bool, interactive bool) (*Scrubber, error) {
	logger = logger.Named("scrubber")

	notifier, err := NewToastNotifier(logger)
	if err != nil {
		logger.Errorw("Failed to create ToastNotifier", "error", err)
		return nil, fmt.Errorf("create new ToastNotifier: %w", err)
	}

	config, err := NewConfig(logger, notifier)
	if err != nil {
		logger.Errorw("Failed to create Config", "error", err)
		return nil, fmt.Errorf("create new Config: %w", err)
	}

	s := &Scrubber{
		logger:          logger,
		notifier:        notifier,
		config:          config,
		prefs:           loadPreferences(logger, internalConfigFilepath),
		stopChannel:     make(chan bool),
		resetChannel:    make(chan bool),
		snapshotChannel: make(chan chan stateSnapshot),
		verbose:         verbose,
		interactive:     interactive,
	}

	// saved speed tiers first, config.yaml gets to override them once loaded
	s.scrubbing = slider.NewFromRecord(s.prefs.Slider)
	s.scrubbing.SetLogger(logger.Named("scrubbing"))

	s.plain = slider.New()
	s.plain.SetScrubbingSpeeds([]float64{1.0})
	s.plain.SetScrubbingSpeedChangePositions([]float64{0.0})
	s.plain.SetLogger(logger.Named("plain"))

	sliders := []*slider.Slider{s.scrubbing}

	if interactive {
		terminal, err := NewTerminal(s, logger)
		if err != nil {
			logger.Errorw("Failed to create Terminal", "error", err)
			return nil, fmt.Errorf("create new Terminal: %w", err)
		}

		s.terminal = terminal

		// the comparison slider only exists on screen
		sliders = append(sliders, s.plain)
	}

	s.driver = newPointerDriver(logger, verbose, sliders...)

	serial, err := NewSerialIO(s, logger)
	if err != nil {
		logger.Errorw("Failed to create SerialIO", "error", err)
		return nil, fmt.Errorf("create new SerialIO: %w", err)
	}

	s.serial = serial

	udp, err := NewUdpIO(s, logger)
	if err != nil {
		logger.Errorw("Failed to create UdpIO", "error", err)
		return nil, fmt.Errorf("create new UdpIO: %w", err)
	}

	s.udp = udp

	logger.Debug("Created scrubber instance")

	return s, nil
}

// Initialize sets up components and starts to run in the background
func (s *Scrubber) Initialize() error {
	s.logger.Debug("Initializing")

	// load the config for the first time
	if err := s.config.Load(); err != nil {
		s.logger.Errorw("Failed to load config during initialization", "error", err)
		return fmt.Errorf("load config during init: %w", err)
	}

	if err := s.setupOutputs(); err != nil {
		s.logger.Errorw("Failed to set up outputs", "error", err)
		return fmt.Errorf("set up outputs: %w", err)
	}

	s.applyConfig()

	initialValue := s.config.InitialValue
	if s.prefs.Value != nil {
		initialValue = *s.prefs.Value
	}

	s.scrubbing.SetValue(initialValue)
	s.plain.SetValue(initialValue)

	s.logger.Debugw("Slider ready",
		"value", s.scrubbing.Value(),
		"record", s.scrubbing.Record())

	if s.terminal != nil {
		if err := s.terminal.Start(); err != nil {
			s.logger.Errorw("Failed to start terminal", "error", err)
			return fmt.Errorf("start terminal: %w", err)
		}
	}

	// decide whether to run with/without tray
	_, noTraySet := os.LookupEnv(envNoTray)

	if noTraySet || s.interactive {
		reason := "envvar set"
		if s.interactive {
			reason = "terminal mode"
		}

		s.logger.Debugw("Running without tray icon", "reason", reason)

		// run in main thread while waiting on ctrl+C
		s.setupInterruptHandler()
		s.run()

	} else {
		s.setupInterruptHandler()
		s.initializeTray(s.run)
	}

	return nil
}

// SetVersion causes scrubber to add a version string to its tray menu if called before Initialize
func (s *Scrubber) SetVersion(version string) {
	s.version = version
}

// Verbose returns a boolean indicating whether scrubber is running in verbose mode
func (s *Scrubber) Verbose() bool {
	return s.verbose
}

// setupOutputs wires the optional listeners (websocket, audio) into the scrubbing slider
func (s *Scrubber) setupOutputs() error {
	listeners := slider.Listeners{s.loggingListener()}

	if s.config.WebsocketInfo.Address != "" {
		s.websocket = NewWebsocketServer(s.logger,
			s.config.WebsocketInfo.Address,
			s.config.WebsocketInfo.Path,
			s.snapshotChannel)

		wl := wsListener{hub: s.websocket.Hub()}

		listeners = append(listeners, wl)
		s.scrubbing.OnValueChanged(wl.valueChanged)
	}

	if s.config.AudioCues {
		cue, err := newSpeedCue(s.logger)
		if err != nil {

			// not worth dying over, the slider works fine silently
			s.logger.Warnw("Audio cues unavailable", "error", err)
		} else {
			s.cue = cue
			listeners = append(listeners, cue)
		}
	}

	s.scrubbing.SetListener(listeners)

	if s.verbose {
		s.scrubbing.OnValueChanged(func(sl *slider.Slider) {
			s.logger.Debugw("Value changed", "value", sl.Value(), "speed", sl.ScrubbingSpeed())
		})
	}

	return nil
}

func (s *Scrubber) loggingListener() slider.Listener {
	logger := s.logger.Named("scrubbing")

	return slider.ListenerFuncs{
		BeginScrubbing: func(sl *slider.Slider) {
			logger.Infow("Scrubbing started", "value", sl.Value())
		},
		EndScrubbing: func(sl *slider.Slider) {
			logger.Infow("Scrubbing ended", "value", sl.Value())
		},
		ChangeScrubbingSpeed: func(_ *slider.Slider, speed float64) {
			logger.Infow("Scrubbing speed changed", "speed", util.FormatPercent(speed))
		},
	}
}

// applyConfig pushes the current config onto both sliders. Only call it from the
// goroutine that owns them (Initialize before the loop runs, the loop afterwards)
func (s *Scrubber) applyConfig() {
	cc := s.config

	for _, sl := range []*slider.Slider{s.scrubbing, s.plain} {
		sl.SetRange(cc.Range.Minimum, cc.Range.Maximum)
		sl.SetContinuous(cc.Continuous)
		sl.SetHitSlop(cc.Geometry.HitSlop)
	}

	if cc.ScrubbingSpeeds != nil || cc.ScrubbingSpeedChangePositions != nil {
		s.scrubbing.Restore(slider.Record{
			Speeds:          cc.ScrubbingSpeeds,
			ChangePositions: cc.ScrubbingSpeedChangePositions,
		})
	}

	if s.terminal != nil {
		s.terminal.setCellSize(cc.Geometry.CellWidth, cc.Geometry.CellHeight)
		s.terminal.layout(s.scrubbing, s.plain)

		return
	}

	s.scrubbing.SetGeometry(slider.LinearGeometry{
		TrackHeight: slider.DefaultGeometry.TrackHeight,
		ThumbWidth:  cc.Geometry.ThumbWidth,
		ThumbHeight: cc.Geometry.ThumbHeight,
	})

	s.scrubbing.SetBounds(slider.Rect{
		Width:  cc.Geometry.SliderWidth,
		Height: cc.Geometry.SliderHeight,
	})
}

func (s *Scrubber) setupInterruptHandler() {
	interruptChannel := util.SetupCloseHandler()

	go func() {
		signal := <-interruptChannel
		s.logger.Debugw("Interrupted", "signal", signal)
		s.signalStop()
	}()
}

func (s *Scrubber) run() {
	s.logger.Info("Run loop starting")

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan bool)

	// subscribe before anything can start producing
	inputs := s.subscribe()

	// watch the config file for changes
	go s.config.WatchConfigFileChanges()

	// the event loop owns the sliders from here on
	go func() {
		defer close(loopDone)
		defer s.recoverFromPanic()

		s.loop(ctx, inputs)
	}()

	if s.websocket != nil {
		go func() {
			if err := s.websocket.Run(ctx); err != nil {
				s.logger.Warnw("Websocket server stopped", "error", err)
				s.notifier.Notify("Can't serve scrubbing events!",
					fmt.Sprintf("Couldn't listen on %s, check your configuration.", s.config.WebsocketInfo.Address))
			}
		}()
	}

	if s.config.UdpConnectionInfo.UdpPort != 0 {
		if err := s.udp.Start(); err != nil {
			s.logger.Warnw("Failed to start UDP listener", "error", err)
		}
	}

	// connect to the touch strip for the first time
	if s.config.ConnectionInfo.COMPort != "" {
		go s.startSerial()
	}

	// wait until stopped (gracefully)
	<-s.stopChannel
	s.logger.Debug("Stop channel signaled, terminating")

	// sources go first, they may still have a pointer-cancel on its way to the loop
	s.stopSources()

	cancel()
	<-loopDone

	if err := s.stop(); err != nil {
		s.logger.Warnw("Failed to stop scrubber", "error", err)
		os.Exit(1)
	} else {
		// exit with 0
		os.Exit(0)
	}
}

func (s *Scrubber) startSerial() {
	if err := s.serial.Start(); err != nil {
		s.logger.Warnw("Failed to start first-time serial connection", "error", err)

		// If the port is busy, that's because something else is connected - notify and quit
		if errors.Is(err, os.ErrPermission) {
			s.logger.Warnw("Serial port seems busy, notifying user and closing",
				"comPort", s.config.ConnectionInfo.COMPort)

			s.notifier.Notify(fmt.Sprintf("Can't connect to %s!", s.config.ConnectionInfo.COMPort),
				"This serial port is busy, make sure to close any serial monitor or other scrubber instance.")

			s.signalStop()

			// also notify if the COM port they gave isn't found, maybe their config is wrong
		} else if errors.Is(err, os.ErrNotExist) {
			s.logger.Warnw("Provided COM port seems wrong, notifying user and closing",
				"comPort", s.config.ConnectionInfo.COMPort)

			s.notifier.Notify(fmt.Sprintf("Can't connect to %s!", s.config.ConnectionInfo.COMPort),
				"This serial port doesn't exist, check your configuration and make sure it's set correctly.")

			s.signalStop()
		}
	}
}

// loopInputs are the channels the event loop selects on. Sources that aren't
// in use leave theirs nil, which never fires
type loopInputs struct {
	serialEvents   chan PointerEvent
	udpEvents      chan PointerEvent
	terminalEvents chan PointerEvent
	resizes        chan bool
	configReloaded chan bool
}

func (s *Scrubber) subscribe() loopInputs {
	inputs := loopInputs{
		serialEvents:   s.serial.SubscribeToPointerEvents(),
		udpEvents:      s.udp.SubscribeToPointerEvents(),
		configReloaded: s.config.SubscribeToChanges(),
	}

	if s.terminal != nil {
		inputs.terminalEvents = s.terminal.SubscribeToPointerEvents()
		inputs.resizes = s.terminal.SubscribeToResizes()
	}

	return inputs
}

// loop is the only goroutine that touches the sliders once running
func (s *Scrubber) loop(ctx context.Context, inputs loopInputs) {
	s.redraw()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Event loop stopping")

			// whatever was being dragged ends here
			s.driver.release()
			return

		case event := <-inputs.serialEvents:
			s.handlePointer(event)

		case event := <-inputs.udpEvents:
			s.handlePointer(event)

		case event := <-inputs.terminalEvents:
			s.handlePointer(event)

		case <-inputs.resizes:
			s.terminal.layout(s.scrubbing, s.plain)
			s.redraw()

		case <-inputs.configReloaded:
			if s.driver.tracking() {
				s.logger.Debug("Config reloaded mid-drag, holding it until the drag ends")
				s.configPending = true
				continue
			}

			s.logger.Debug("Applying reloaded config to sliders")
			s.applyConfig()
			s.redraw()

		case <-s.resetChannel:
			s.resetValue()
			s.redraw()

		case reply := <-s.snapshotChannel:
			reply <- snapshotOf(s.scrubbing)
		}
	}
}

// handlePointer moves device coordinates, which are relative to the scrubbing
// slider, onto the surface before dispatching
func (s *Scrubber) handlePointer(event PointerEvent) {
	if event.Source != terminalSourceName {
		origin := s.scrubbing.Bounds()
		event.X += origin.X
		event.Y += origin.Y
	}

	s.driver.handle(event)

	if s.configPending && !s.driver.tracking() {
		s.logger.Debug("Drag ended, applying held config to sliders")
		s.configPending = false
		s.applyConfig()
	}

	s.redraw()
}

func (s *Scrubber) resetValue() {
	if s.driver.tracking() {
		s.logger.Debug("Not resetting value mid-scrub")
		return
	}

	s.scrubbing.SetValue(s.config.InitialValue)
	s.logger.Infow("Value reset", "value", s.scrubbing.Value())

	if s.websocket != nil {
		wsListener{hub: s.websocket.Hub()}.valueChanged(s.scrubbing)
	}
}

func (s *Scrubber) redraw() {
	if s.terminal != nil {
		s.terminal.draw(s.scrubbing, s.plain)
	}
}

func (s *Scrubber) signalStop() {
	s.logger.Debug("Signalling stop channel")
	s.stopChannel <- true
}

func (s *Scrubber) stopSources() {
	s.config.StopWatchingConfigFile()
	s.serial.Stop()
	s.udp.Stop()

	if s.terminal != nil {
		s.terminal.Stop()
	}
}

func (s *Scrubber) stop() error {
	s.logger.Info("Stopping")

	if s.cue != nil {
		s.cue.close()
	}

	value := s.scrubbing.Value()
	prefs := preferences{Value: &value, Slider: s.scrubbing.Record()}

	if err := savePreferences(internalConfigFilepath, prefs); err != nil {
		s.logger.Errorw("Failed to save preferences", "error", err)
		return fmt.Errorf("save preferences: %w", err)
	}

	if !s.interactive {
		if _, noTraySet := os.LookupEnv(envNoTray); !noTraySet {
			s.stopTray()
		}
	}

	// attempt to sync on exit - this won't necessarily work but can't harm
	s.logger.Sync()

	return nil
}
