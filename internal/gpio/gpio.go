// Package gpio provides switch sampling and the relay shift register with
// hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sweeney/signal-panel/internal/panel"
)

// Reader samples the switch lines.
type Reader interface {
	// Read returns the logical switch states for one cycle.
	// Switches are active low: a line pulled to ground = switch on.
	Read() (panel.SwitchStatus, error)

	// Close releases GPIO resources.
	Close() error
}

// Register drives the relay board through a shift register.
type Register interface {
	// Transmit latches b into the register; bit i drives channel i.
	Transmit(b byte) error

	// Close releases GPIO resources.
	Close() error
}

// Wiring lists the line offsets of each logical switch. Lines of the same
// switch are OR-combined. A switch with no lines reads as off, except DRL
// which reads as on.
type Wiring struct {
	BlinkLeft     []int
	BlinkRight    []int
	Horn          []int
	Alert         []int
	BoxLight      []int
	PositionLight []int
	FourWay       []int
	DRL           []int
}

// RegisterPins holds the shift register control line offsets.
// OutputEnable < 0 means OE is hard-wired.
type RegisterPins struct {
	Latch        int
	Clock        int
	Data         int
	OutputEnable int
}

// Active converts a raw line value to the logical switch state.
// Switches pull the line to ground: raw 0 = on, raw 1 = off.
func Active(raw int) bool {
	return raw == 0
}

// Combine derives the switch status from raw line values keyed by offset.
// A line missing from values reads as inactive.
func Combine(values map[int]int, w Wiring) panel.SwitchStatus {
	anyActive := func(lines []int) bool {
		for _, l := range lines {
			if raw, ok := values[l]; ok && Active(raw) {
				return true
			}
		}
		return false
	}

	drl := true
	if len(w.DRL) > 0 {
		drl = anyActive(w.DRL)
	}

	return panel.SwitchStatus{
		BlinkLeft:     anyActive(w.BlinkLeft),
		BlinkRight:    anyActive(w.BlinkRight),
		Horn:          anyActive(w.Horn),
		Alert:         anyActive(w.Alert),
		BoxLight:      anyActive(w.BoxLight),
		PositionLight: anyActive(w.PositionLight),
		FourWay:       anyActive(w.FourWay),
		DRL:           drl,
	}
}

// Lines returns every distinct offset in the wiring, sorted.
func (w Wiring) Lines() []int {
	seen := make(map[int]bool)
	var out []int
	for _, lines := range [][]int{w.BlinkLeft, w.BlinkRight, w.Horn, w.Alert, w.BoxLight, w.PositionLight, w.FourWay, w.DRL} {
		for _, l := range lines {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	sort.Ints(out)
	return out
}

// Bits returns the serial bit sequence for b, most significant bit first.
func Bits(b byte) [8]int {
	var out [8]int
	for i := 0; i < 8; i++ {
		out[i] = int(b>>uint(7-i)) & 1
	}
	return out
}

// closeStep is one named action of a device teardown.
type closeStep struct {
	name string
	fn   func() error
}

// runClose runs every step in order, carrying on past failures, and joins
// the failures wrapped with their step names.
func runClose(steps []closeStep) error {
	var errs []error
	for _, s := range steps {
		if err := s.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
