// Package panel contains the pure control logic for the signal panel.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time or time.Duration parameters.
package panel

import (
	"fmt"
	"strings"
	"time"
)

// ChannelCount is the number of relays on the board.
const ChannelCount = 8

// Timing constants. Blink and strobe speeds are half periods.
const (
	BlinkSpeed          = 400 * time.Millisecond
	StrobeSpeed         = 75 * time.Millisecond
	HornAlertTimeout    = 3000 * time.Millisecond // alert afterglow after the horn is released
	DefaultAlertTimeout = 500 * time.Millisecond  // alert afterglow after the alert switch is released
)

// Channel is a 0-based output index. Bit i of the register byte drives channel i.
type Channel int

const (
	ChannelHorn Channel = iota
	ChannelPositionLeft
	ChannelPositionRight
	ChannelBlinkLeft
	ChannelBlinkRight
	ChannelDRL
	ChannelAlert
	ChannelBoxLight
)

var channelNames = [ChannelCount]string{
	"horn",
	"position_left",
	"position_right",
	"blink_left",
	"blink_right",
	"drl",
	"alert",
	"box_light",
}

func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Valid reports whether c addresses a relay on the board.
func (c Channel) Valid() bool {
	return c >= 0 && c < ChannelCount
}

// Mode is the temporal behavior of a channel.
type Mode int

const (
	ModeOff Mode = iota
	ModeOn
	ModeBlink
	ModeStrobe
	ModeUnset // only before a channel's first request
)

var modeNames = map[Mode]string{
	ModeOff:    "OFF",
	ModeOn:     "ON",
	ModeBlink:  "BLINK",
	ModeStrobe: "STROBE",
	ModeUnset:  "UNSET",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("MODE(%d)", int(m))
}

// requestable reports whether m may be the target of a Request.
func (m Mode) requestable() bool {
	return m >= ModeOff && m <= ModeStrobe
}

// halfPeriod returns the phase toggle interval for periodic modes, 0 otherwise.
func (m Mode) halfPeriod() time.Duration {
	switch m {
	case ModeBlink:
		return BlinkSpeed
	case ModeStrobe:
		return StrobeSpeed
	}
	return 0
}

// ParseMode converts a case-insensitive mode name to a Mode.
// Unset cannot be parsed; it is never a valid target.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if m != ModeUnset && strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return ModeUnset, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// SwitchStatus is the logical switch state for one control cycle.
// Redundant switches are already OR-combined.
type SwitchStatus struct {
	BlinkLeft     bool
	BlinkRight    bool
	Horn          bool
	Alert         bool
	BoxLight      bool
	PositionLight bool
	FourWay       bool
	DRL           bool
}

// Request asks the engine to put a channel into a mode.
// StartIn delays the mode; Duration 0 means the mode persists until replaced.
// Restart replaces the channel's timer even when the request repeats it.
type Request struct {
	Channel  Channel
	Mode     Mode
	StartIn  time.Duration
	Duration time.Duration
	Restart  bool
}

// ModeTimer is the timed-mode state of one channel.
type ModeTimer struct {
	Mode Mode
	// Remaining delay before the mode takes effect.
	StartIn time.Duration
	// Active time after which the channel reverts to Off; 0 = indefinite.
	Duration time.Duration
	// Current half period of Blink/Strobe; meaningless for other modes.
	Phase bool
	// Cumulative time spent active (after StartIn ran out).
	Active time.Duration

	// Time into the current half period.
	phaseElapsed time.Duration
	// The request that configured this timer, used for idempotence.
	requested Request
}

// Output returns the channel's current boolean output.
func (t ModeTimer) Output() bool {
	if t.StartIn > 0 {
		return false
	}
	switch t.Mode {
	case ModeOn:
		return true
	case ModeBlink, ModeStrobe:
		return t.Phase
	}
	return false
}

// Fault is a non-fatal condition observed on one channel during a tick.
type Fault struct {
	Channel Channel
	Err     error
}

// Event represents a channel mode transition to be published.
type Event struct {
	Timestamp time.Time
	Channel   Channel
	From      Mode
	To        Mode
	Output    byte // register byte after the cycle that produced the transition
}

// Input represents one sampled cycle.
type Input struct {
	Switches SwitchStatus
	Time     time.Time
}

// Result is the outcome of one control cycle.
type Result struct {
	Outputs []bool
	Modes   [ChannelCount]Mode
	Byte    byte
	Events  []Event
	Faults  []Fault
}

// Counts tracks controller activity since startup.
type Counts struct {
	Cycles      int
	Transitions int
	Faults      int
	Rejected    int // requests or ticks refused by the engine
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
