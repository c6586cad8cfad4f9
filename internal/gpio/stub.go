//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/signal-panel/internal/panel"
)

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader(chip string, w Wiring) (*RealReader, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealReader) Read() (panel.SwitchStatus, error) {
	return panel.SwitchStatus{}, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}

// RealRegister is not available on non-Linux platforms.
type RealRegister struct{}

// NewRealRegister returns an error on non-Linux platforms.
func NewRealRegister(chip string, pins RegisterPins) (*RealRegister, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Transmit is not implemented on non-Linux platforms.
func (r *RealRegister) Transmit(b byte) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealRegister) Close() error {
	return nil
}
