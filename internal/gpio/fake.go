package gpio

import (
	"errors"

	"github.com/sweeney/signal-panel/internal/panel"
)

// FakeReader is a test double that returns scripted switch states.
type FakeReader struct {
	// Samples contains scripted switch states to return.
	// Each call to Read() consumes the next sample.
	Samples []panel.SwitchStatus

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []panel.SwitchStatus) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (panel.SwitchStatus, error) {
	if f.ReadError != nil {
		return panel.SwitchStatus{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return panel.SwitchStatus{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeRegister records every transmitted byte.
type FakeRegister struct {
	// Sent contains every byte passed to Transmit, in order.
	Sent []byte

	// TransmitError, if set, will be returned by Transmit (nothing is recorded).
	TransmitError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeRegister creates an empty FakeRegister.
func NewFakeRegister() *FakeRegister {
	return &FakeRegister{}
}

// Transmit records b.
func (f *FakeRegister) Transmit(b byte) error {
	if f.TransmitError != nil {
		return f.TransmitError
	}
	f.Sent = append(f.Sent, b)
	return nil
}

// Last returns the most recent byte and whether any byte was sent.
func (f *FakeRegister) Last() (byte, bool) {
	if len(f.Sent) == 0 {
		return 0, false
	}
	return f.Sent[len(f.Sent)-1], true
}

// Outputs returns the channel outputs of the most recent byte.
func (f *FakeRegister) Outputs() []bool {
	b, _ := f.Last()
	return panel.Decode(b)
}

// Close marks the register as closed.
func (f *FakeRegister) Close() error {
	f.Closed = true
	return nil
}
