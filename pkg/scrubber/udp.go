package scrubber

import (
	"fmt"
	"net"

	"go.uber.org/zap"
)

const udpSourceName = "udp"

// UdpIO receives pointer samples as UDP datagrams, one line per packet.
// This is how trackpad-style remotes (phones, tablets) drive the slider
type UdpIO struct {
	scrubber *Scrubber
	logger   *zap.SugaredLogger

	stopChannel chan bool

	connection *net.UDPConn

	tracker *pointerTracker

	pointerConsumers []chan PointerEvent
}

// NewUdpIO creates a UdpIO instance that uses the provided scrubber
// instance's connection info to listen for the controller
func NewUdpIO(scrubber *Scrubber, logger *zap.SugaredLogger) (*UdpIO, error) {
	logger = logger.Named(udpSourceName)

	udpio := &UdpIO{
		scrubber:         scrubber,
		logger:           logger,
		stopChannel:      make(chan bool),
		tracker:          newPointerTracker(udpSourceName),
		pointerConsumers: []chan PointerEvent{},
	}

	logger.Debug("Created UDP i/o instance")

	return udpio, nil
}

// Start creates a UDP listener server
func (udpio *UdpIO) Start() error {
	port := udpio.scrubber.config.UdpConnectionInfo.UdpPort

	s, err := net.ResolveUDPAddr("udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		udpio.logger.Warnw("Failed to resolve UDP address", "error", err)
		return fmt.Errorf("resolve udp address: %w", err)
	}

	connection, err := net.ListenUDP("udp4", s)
	if err != nil {
		udpio.logger.Warnw("Failed to start UDP listener", "error", err)
		return fmt.Errorf("start udp listener: %w", err)
	}

	udpio.connection = connection

	namedLogger := udpio.logger.Named(fmt.Sprintf(":%d", port))

	namedLogger.Infow("Listening", "addr", connection.LocalAddr())

	// read packets or await a stop
	go func() {
		packetChannel := udpio.readPacket(namedLogger, connection)

		for {
			select {
			case <-udpio.stopChannel:
				udpio.cancelPointer()
				udpio.close(namedLogger)
				return

			case packet, ok := <-packetChannel:
				if !ok {
					udpio.cancelPointer()
					return
				}

				udpio.handlePacket(namedLogger, packet)
			}
		}
	}()

	return nil
}

func (udpio *UdpIO) readPacket(logger *zap.SugaredLogger, connection *net.UDPConn) chan string {
	packetChannel := make(chan string)

	go func() {
		defer close(packetChannel)

		packet := make([]byte, 4096)

		for {
			bytesRead, _, err := connection.ReadFromUDP(packet)

			if err != nil {

				if udpio.scrubber.Verbose() {
					logger.Warnw("Failed to read UDP packet", "error", err)
				}

				return
			}

			stringData := string(packet[:bytesRead])

			if udpio.scrubber.Verbose() {
				logger.Debugw("Read new packet", "packet", stringData)
			}

			packetChannel <- stringData
		}
	}()

	return packetChannel
}

func (udpio *UdpIO) close(logger *zap.SugaredLogger) {
	if err := udpio.connection.Close(); err != nil {
		logger.Warnw("Failed to close UDP connection", "error", err)
	} else {
		logger.Debug("UDP connection closed")
	}

	udpio.connection = nil
}

// Stop signals us to shut down our UDP listener, if one is active
func (udpio *UdpIO) Stop() {
	if udpio.connection != nil {
		udpio.logger.Debug("Shutting down UDP listener")
		udpio.stopChannel <- true
	} else {
		udpio.logger.Debug("Not currently listening, nothing to stop")
	}
}

// SubscribeToPointerEvents returns an unbuffered channel that receives
// a PointerEvent every time the remote pointer is pressed, moved or released
func (udpio *UdpIO) SubscribeToPointerEvents() chan PointerEvent {
	ch := make(chan PointerEvent)
	udpio.pointerConsumers = append(udpio.pointerConsumers, ch)

	return ch
}

func (udpio *UdpIO) handlePacket(logger *zap.SugaredLogger, packet string) {
	pressed, x, y, ok := parsePointerLine(packet)
	if !ok {
		if udpio.scrubber.Verbose() {
			logger.Debugw("Got malformed packet from UDP, ignoring", "packet", packet)
		}

		return
	}

	if event, ok := udpio.tracker.feed(pressed, x, y); ok {
		udpio.deliver(event)
	}
}

func (udpio *UdpIO) cancelPointer() {
	if event, ok := udpio.tracker.cancel(); ok {
		udpio.deliver(event)
	}
}

// deliver the event towards all potential consumers
func (udpio *UdpIO) deliver(event PointerEvent) {
	for _, consumer := range udpio.pointerConsumers {
		consumer <- event
	}
}
