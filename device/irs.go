package device

import "sync/atomic"

// PinMode selects when an attached pin latches an interrupt, matching the
// usual MCU edge and level options.
type PinMode int

const (
	ModeLow PinMode = iota
	ModeHigh
	ModeRising
	ModeFalling
	ModeChange
)

// PinDriver is the platform hook that arms a hardware interrupt for a pin.
// The handler it is given must be called from the pin's ISR and does nothing
// but latch a bit, so it is safe in interrupt context.
type PinDriver interface {
	Attach(pin int, mode PinMode, handler func()) error
}

// interruptMask records which pins have fired since they were last reset.
// ISRs only ever set bits; cooperative code polls and clears them.
var interruptMask atomic.Uint32

// pinBits maps the interrupt-capable pins to their mask bit. These are the
// ESP8266 GPIOs that support external interrupts.
var pinBits = map[int]uint32{
	0:  0x01,
	2:  0x02,
	4:  0x04,
	5:  0x08,
	12: 0x10,
	13: 0x20,
	14: 0x40,
	15: 0x80,
}

var pinDriver PinDriver

// SetPinDriver registers the platform's interrupt driver. Must be called
// before Attach.
func SetPinDriver(d PinDriver) {
	pinDriver = d
}

// Attach arms an interrupt latch for pin. Unsupported pins are ignored, as
// are calls before a driver is registered.
func Attach(pin int, mode PinMode) {
	bit, ok := pinBits[pin]
	if !ok || pinDriver == nil {
		return
	}

	_ = pinDriver.Attach(pin, mode, func() {
		latch(bit)
	})
}

// Triggered reports whether pin has caused a hardware interrupt since it was
// last reset.
func Triggered(pin int) bool {
	bit, ok := pinBits[pin]
	if !ok {
		return false
	}

	return interruptMask.Load()&bit != 0
}

// Reset clears pin's latched interrupt.
func Reset(pin int) {
	bit, ok := pinBits[pin]
	if !ok {
		return
	}

	for {
		old := interruptMask.Load()
		if interruptMask.CompareAndSwap(old, old&^bit) {
			return
		}
	}
}

func latch(bit uint32) {
	for {
		old := interruptMask.Load()
		if interruptMask.CompareAndSwap(old, old|bit) {
			return
		}
	}
}
