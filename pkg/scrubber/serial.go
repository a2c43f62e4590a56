package scrubber

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/omriharel/scrubber/pkg/scrubber/util"
)

const serialSourceName = "serial"

// SerialIO reads pointer samples from a touch strip (or any microcontroller
// speaking the same line protocol) over a serial port
type SerialIO struct {
	scrubber *Scrubber
	logger   *zap.SugaredLogger

	stopChannel chan bool
	connected   bool
	connOptions serial.OpenOptions
	conn        io.ReadWriteCloser

	tracker *pointerTracker

	pointerConsumers []chan PointerEvent
}

// NewSerialIO creates a SerialIO instance that uses the provided scrubber
// instance's connection info to establish communications with the device
func NewSerialIO(scrubber *Scrubber, logger *zap.SugaredLogger) (*SerialIO, error) {
	logger = logger.Named(serialSourceName)

	sio := &SerialIO{
		scrubber:         scrubber,
		logger:           logger,
		stopChannel:      make(chan bool),
		connected:        false,
		conn:             nil,
		tracker:          newPointerTracker(serialSourceName),
		pointerConsumers: []chan PointerEvent{},
	}

	logger.Debug("Created serial i/o instance")

	// respond to config changes
	sio.setupOnConfigReload()

	return sio, nil
}

// Start attempts to connect to the device
func (sio *SerialIO) Start() error {

	// don't allow multiple concurrent connections
	if sio.connected {
		sio.logger.Warn("Already connected, can't start another without closing first")
		return errors.New("serial: connection already active")
	}

	// set minimum read size according to platform (0 for windows, 1 for linux)
	// this prevents a rare bug on windows where serial reads get congested,
	// resulting in significant lag
	minimumReadSize := 0
	if util.Linux() {
		minimumReadSize = 1
	}

	sio.connOptions = serial.OpenOptions{
		PortName:        sio.scrubber.config.ConnectionInfo.COMPort,
		BaudRate:        uint(sio.scrubber.config.ConnectionInfo.BaudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: uint(minimumReadSize),
	}

	sio.logger.Debugw("Attempting serial connection",
		"comPort", sio.connOptions.PortName,
		"baudRate", sio.connOptions.BaudRate,
		"minReadSize", minimumReadSize)

	var err error
	sio.conn, err = serial.Open(sio.connOptions)
	if err != nil {
		sio.logger.Warnw("Failed to open serial connection", "error", err)
		return fmt.Errorf("open serial connection: %w", err)
	}

	namedLogger := sio.logger.Named(strings.ToLower(sio.connOptions.PortName))

	namedLogger.Infow("Connected", "conn", sio.conn)
	sio.connected = true

	// read lines or await a stop
	go func() {
		lineChannel := sio.readLine(namedLogger, bufio.NewReader(sio.conn))

		for {
			select {
			case <-sio.stopChannel:
				sio.close(namedLogger)
				return

			case line, ok := <-lineChannel:
				if !ok {
					namedLogger.Warn("Serial connection lost")
					sio.cancelPointer()
					sio.close(namedLogger)
					return
				}

				sio.handleLine(namedLogger, line)
			}
		}
	}()

	return nil
}

// Stop signals us to shut down our serial connection, if one is active
func (sio *SerialIO) Stop() {
	if sio.connected {
		sio.logger.Debug("Shutting down serial connection")
		sio.stopChannel <- true
	} else {
		sio.logger.Debug("Not currently connected, nothing to stop")
	}
}

// SubscribeToPointerEvents returns an unbuffered channel that receives
// a PointerEvent every time the device's pointer is pressed, moved or released
func (sio *SerialIO) SubscribeToPointerEvents() chan PointerEvent {
	ch := make(chan PointerEvent)
	sio.pointerConsumers = append(sio.pointerConsumers, ch)

	return ch
}

func (sio *SerialIO) setupOnConfigReload() {
	configReloadedChannel := sio.scrubber.config.SubscribeToChanges()

	const stopDelay = 50 * time.Millisecond

	go func() {
		for range configReloadedChannel {

			// nothing to renew if we never connected with anything
			if sio.scrubber.config.ConnectionInfo.COMPort == "" && !sio.connected {
				continue
			}

			// if connection params have changed, attempt to stop and start the connection
			if sio.scrubber.config.ConnectionInfo.COMPort != sio.connOptions.PortName ||
				uint(sio.scrubber.config.ConnectionInfo.BaudRate) != sio.connOptions.BaudRate {

				sio.logger.Info("Detected change in connection parameters, attempting to renew connection")
				sio.Stop()

				// let the connection close
				<-time.After(stopDelay)

				if sio.scrubber.config.ConnectionInfo.COMPort == "" {
					sio.logger.Info("Serial input disabled by configuration")
					continue
				}

				if err := sio.Start(); err != nil {
					sio.logger.Warnw("Failed to renew connection after parameter change", "error", err)
				} else {
					sio.logger.Debug("Renewed connection successfully")
				}
			}
		}
	}()
}

func (sio *SerialIO) close(logger *zap.SugaredLogger) {
	if err := sio.conn.Close(); err != nil {
		logger.Warnw("Failed to close serial connection", "error", err)
	} else {
		logger.Debug("Serial connection closed")
	}

	sio.conn = nil
	sio.connected = false
}

func (sio *SerialIO) readLine(logger *zap.SugaredLogger, reader *bufio.Reader) chan string {
	ch := make(chan string)

	go func() {
		defer close(ch)

		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if sio.scrubber.Verbose() {
					logger.Warnw("Failed to read line from serial", "error", err, "line", line)
				}

				return
			}

			if sio.scrubber.Verbose() {
				logger.Debugw("Read new line", "line", line)
			}

			// deliver the line to the channel
			ch <- line
		}
	}()

	return ch
}

func (sio *SerialIO) handleLine(logger *zap.SugaredLogger, line string) {

	// lines come in unsanitized and usually end with CRLF. they may also be garbage
	// (a half line right after connecting is common), so just ignore bad ones
	pressed, x, y, ok := parsePointerLine(line)
	if !ok {
		if sio.scrubber.Verbose() {
			logger.Debugw("Ignoring malformed line", "line", line)
		}

		return
	}

	if event, ok := sio.tracker.feed(pressed, x, y); ok {
		sio.deliver(event)
	}
}

func (sio *SerialIO) cancelPointer() {
	if event, ok := sio.tracker.cancel(); ok {
		sio.deliver(event)
	}
}

// deliver the event towards all potential consumers
func (sio *SerialIO) deliver(event PointerEvent) {
	for _, consumer := range sio.pointerConsumers {
		consumer <- event
	}
}
