//go:build !tinygo

package transport

import (
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud matches the bridge firmware's UART configuration.
const DefaultBaud = 115200

// SerialStream is a ByteStream over a serial port, for devices cabled to a
// Master-side bridge instead of reaching it over TCP. Connect interprets the
// host as the device path (for example /dev/ttyUSB0) and the port as the
// baud rate, falling back to DefaultBaud when the port is zero.
type SerialStream struct {
	port      *serial.Port
	rx        *FIFO
	wbuf      []byte
	connected atomic.Bool
}

// NewSerialStream returns a disconnected stream; call Connect before use.
func NewSerialStream() *SerialStream {
	return &SerialStream{
		rx: NewFIFO(rxBufferSize),
	}
}

func (s *SerialStream) Connect(device string, baud int) bool {
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}

	s.connected.Store(false)
	s.rx.Reset()
	s.wbuf = s.wbuf[:0]

	if baud == 0 {
		baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return false
	}

	s.port = port
	s.connected.Store(true)

	go s.pump(port)

	return true
}

func (s *SerialStream) pump(port *serial.Port) {
	buf := make([]byte, 256)

	for s.connected.Load() {
		n, err := port.Read(buf)
		if n > 0 {
			data := buf[:n]
			for len(data) > 0 {
				written := s.rx.Write(data)
				if written == 0 {
					time.Sleep(time.Millisecond)
					continue
				}

				data = data[written:]
			}
		}

		if n == 0 || err != nil {
			// Read timeouts come back empty; the port stays usable. A closed
			// port also reads empty, and Close clears the flag that ends the
			// loop.
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func (s *SerialStream) Peek() (byte, bool) { return s.rx.Peek() }

func (s *SerialStream) Read() (byte, bool) { return s.rx.Read() }

func (s *SerialStream) Write(p []byte) {
	s.wbuf = append(s.wbuf, p...)
}

func (s *SerialStream) Flush() {
	if s.port == nil || len(s.wbuf) == 0 {
		return
	}

	if _, err := s.port.Write(s.wbuf); err != nil {
		s.connected.Store(false)
	}

	s.wbuf = s.wbuf[:0]
}

func (s *SerialStream) Connected() bool {
	return s.connected.Load()
}

// Close releases the port and stops the pump.
func (s *SerialStream) Close() {
	s.connected.Store(false)

	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
}
