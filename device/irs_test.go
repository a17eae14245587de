package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePinDriver records attachments and exposes the latch handlers so tests
// can fire interrupts.
type fakePinDriver struct {
	handlers map[int]func()
	modes    map[int]PinMode
}

func newFakePinDriver() *fakePinDriver {
	return &fakePinDriver{
		handlers: map[int]func(){},
		modes:    map[int]PinMode{},
	}
}

func (d *fakePinDriver) Attach(pin int, mode PinMode, handler func()) error {
	d.handlers[pin] = handler
	d.modes[pin] = mode

	return nil
}

func resetAllPins() {
	for pin := range pinBits {
		Reset(pin)
	}
}

func TestIRSTriggerAndReset(t *testing.T) {
	driver := newFakePinDriver()
	SetPinDriver(driver)
	t.Cleanup(resetAllPins)

	Attach(4, ModeRising)
	require.Contains(t, driver.handlers, 4)
	assert.Equal(t, ModeRising, driver.modes[4])

	assert.False(t, Triggered(4))

	driver.handlers[4]()
	assert.True(t, Triggered(4))

	Reset(4)
	assert.False(t, Triggered(4))
}

func TestIRSPinsLatchIndependently(t *testing.T) {
	driver := newFakePinDriver()
	SetPinDriver(driver)
	t.Cleanup(resetAllPins)

	Attach(12, ModeChange)
	Attach(13, ModeFalling)

	driver.handlers[12]()

	assert.True(t, Triggered(12))
	assert.False(t, Triggered(13))

	driver.handlers[13]()
	Reset(12)

	assert.False(t, Triggered(12))
	assert.True(t, Triggered(13))
}

func TestIRSRepeatedTriggersStayLatched(t *testing.T) {
	driver := newFakePinDriver()
	SetPinDriver(driver)
	t.Cleanup(resetAllPins)

	Attach(5, ModeRising)

	driver.handlers[5]()
	driver.handlers[5]()

	assert.True(t, Triggered(5))

	Reset(5)
	assert.False(t, Triggered(5))
}

func TestIRSIgnoresUnsupportedPins(t *testing.T) {
	driver := newFakePinDriver()
	SetPinDriver(driver)
	t.Cleanup(resetAllPins)

	// GPIO1 and GPIO3 are the UART pins; they cannot latch interrupts.
	Attach(1, ModeRising)
	assert.NotContains(t, driver.handlers, 1)

	assert.False(t, Triggered(1))
	Reset(1) // no-op
}
