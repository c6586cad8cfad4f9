//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/signal-panel/internal/panel"
)

const consumer = "signal-panel"

// RealReader reads switches from actual hardware using Linux GPIO character device.
type RealReader struct {
	lines   *gpiocdev.Lines
	offsets []int
	values  []int
	wiring  Wiring
}

// NewRealReader requests every switch line as an input with pull-up, so an
// open switch reads high (inactive) and a closed one pulls it to ground.
func NewRealReader(chip string, w Wiring) (*RealReader, error) {
	offsets := w.Lines()
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no switch lines configured")
	}

	lines, err := gpiocdev.RequestLines(chip, offsets,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("request switch lines %v on %s: %w", offsets, chip, err)
	}

	return &RealReader{
		lines:   lines,
		offsets: offsets,
		values:  make([]int, len(offsets)),
		wiring:  w,
	}, nil
}

// Read samples every line once and combines redundant switches.
func (r *RealReader) Read() (panel.SwitchStatus, error) {
	if err := r.lines.Values(r.values); err != nil {
		return panel.SwitchStatus{}, fmt.Errorf("read switch lines: %w", err)
	}

	raw := make(map[int]int, len(r.offsets))
	for i, o := range r.offsets {
		raw[o] = r.values[i]
	}
	return Combine(raw, r.wiring), nil
}

// Close releases the switch lines.
func (r *RealReader) Close() error {
	if r.lines == nil {
		return nil
	}
	if err := r.lines.Close(); err != nil {
		return fmt.Errorf("close switch lines: %w", err)
	}
	return nil
}

// RealRegister drives a 74HC595 shift register over three GPIO lines.
type RealRegister struct {
	chip  *gpiocdev.Chip
	latch *gpiocdev.Line
	clock *gpiocdev.Line
	data  *gpiocdev.Line
	oe    *gpiocdev.Line // nil when OE is hard-wired
}

// NewRealRegister requests the register lines as outputs, clears the
// register, then enables its outputs. Relays are never energized with
// whatever the register held at power-up.
func NewRealRegister(chipName string, pins RegisterPins) (*RealRegister, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	r := &RealRegister{chip: chip}

	// OE is active low: hold it high (outputs disabled) until the register is cleared.
	if pins.OutputEnable >= 0 {
		if r.oe, err = chip.RequestLine(pins.OutputEnable, gpiocdev.AsOutput(1)); err != nil {
			r.Close()
			return nil, fmt.Errorf("request OE pin %d: %w", pins.OutputEnable, err)
		}
	}
	if r.latch, err = chip.RequestLine(pins.Latch, gpiocdev.AsOutput(1)); err != nil {
		r.Close()
		return nil, fmt.Errorf("request latch pin %d: %w", pins.Latch, err)
	}
	if r.clock, err = chip.RequestLine(pins.Clock, gpiocdev.AsOutput(0)); err != nil {
		r.Close()
		return nil, fmt.Errorf("request clock pin %d: %w", pins.Clock, err)
	}
	if r.data, err = chip.RequestLine(pins.Data, gpiocdev.AsOutput(0)); err != nil {
		r.Close()
		return nil, fmt.Errorf("request data pin %d: %w", pins.Data, err)
	}

	if err := r.Transmit(0); err != nil {
		r.Close()
		return nil, fmt.Errorf("clear register: %w", err)
	}
	if r.oe != nil {
		if err := r.oe.SetValue(0); err != nil {
			r.Close()
			return nil, fmt.Errorf("enable outputs: %w", err)
		}
	}

	return r, nil
}

// Transmit pulls the latch low, shifts b out most significant bit first on
// the rising clock edge, then raises the latch to copy it to the outputs.
func (r *RealRegister) Transmit(b byte) error {
	if err := r.latch.SetValue(0); err != nil {
		return fmt.Errorf("latch low: %w", err)
	}
	for i, bit := range Bits(b) {
		if err := r.data.SetValue(bit); err != nil {
			return fmt.Errorf("data bit %d: %w", i, err)
		}
		if err := r.clock.SetValue(1); err != nil {
			return fmt.Errorf("clock high bit %d: %w", i, err)
		}
		if err := r.clock.SetValue(0); err != nil {
			return fmt.Errorf("clock low bit %d: %w", i, err)
		}
	}
	if err := r.latch.SetValue(1); err != nil {
		return fmt.Errorf("latch high: %w", err)
	}
	return nil
}

// Close clears the register, disables its outputs and reverts every line to
// input so no relay is left energized after the process exits.
func (r *RealRegister) Close() error {
	var steps []closeStep

	if r.latch != nil && r.clock != nil && r.data != nil {
		steps = append(steps, closeStep{"clear register", func() error { return r.Transmit(0) }})
	}
	if r.oe != nil {
		steps = append(steps, closeStep{"disable outputs", func() error { return r.oe.SetValue(1) }})
	}

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"data", r.data},
		{"clock", r.clock},
		{"latch", r.latch},
		{"OE", r.oe},
	} {
		if l.line == nil {
			continue
		}
		line := l.line
		// Released OE is held high by the board's pull-up.
		steps = append(steps,
			closeStep{"reconfigure " + l.name + " pin", func() error { return line.Reconfigure(gpiocdev.AsInput) }},
			closeStep{"close " + l.name + " pin", line.Close},
		)
	}
	if r.chip != nil {
		steps = append(steps, closeStep{"close chip", r.chip.Close})
	}

	return runClose(steps)
}
