package panel

import (
	"fmt"
	"time"
)

// Engine owns the mode timers of all channels.
// Not safe for concurrent use; the control loop is its only caller.
type Engine struct {
	timers [ChannelCount]ModeTimer
}

// NewEngine creates an engine with every channel Unset.
// Each channel must be requested before the first tick or it is forced Off
// with an ErrUnsetModeObserved fault.
func NewEngine() *Engine {
	e := &Engine{}
	for i := range e.timers {
		e.timers[i] = ModeTimer{Mode: ModeUnset}
	}
	return e
}

// Request puts a channel into a mode. A request that repeats the mode and
// timing of the channel's active timer is a no-op unless it sets Restart, so
// polling the same switch every cycle does not restart blink phases or
// countdowns. Anything else replaces the timer; Blink and Strobe restart in
// the on phase.
func (e *Engine) Request(r Request) error {
	if !r.Channel.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, int(r.Channel))
	}
	if !r.Mode.requestable() {
		return fmt.Errorf("%w: %s", ErrInvalidMode, r.Mode)
	}
	if r.StartIn < 0 || r.Duration < 0 {
		return fmt.Errorf("%w: start_in=%v duration=%v", ErrInvalidTiming, r.StartIn, r.Duration)
	}

	t := &e.timers[r.Channel]
	if !r.Restart && t.Mode == r.Mode && t.requested.sameTiming(r) {
		return nil
	}

	*t = ModeTimer{
		Mode:      r.Mode,
		StartIn:   r.StartIn,
		Duration:  r.Duration,
		Phase:     r.Mode.halfPeriod() > 0,
		requested: r,
	}
	return nil
}

// Tick advances every channel by elapsed. Channels found Unset are forced Off
// and reported as faults; they never stop the other channels from advancing.
// A non-positive elapsed is rejected and leaves all state unchanged.
func (e *Engine) Tick(elapsed time.Duration) ([]Fault, error) {
	if elapsed <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidElapsed, elapsed)
	}

	var faults []Fault
	for i := range e.timers {
		if err := e.timers[i].advance(elapsed); err != nil {
			faults = append(faults, Fault{Channel: Channel(i), Err: err})
		}
	}
	return faults, nil
}

// Snapshot returns the output of every channel in channel-index order.
func (e *Engine) Snapshot() []bool {
	out := make([]bool, ChannelCount)
	for i, t := range e.timers {
		out[i] = t.Output()
	}
	return out
}

// Modes returns the current mode of every channel.
func (e *Engine) Modes() [ChannelCount]Mode {
	var modes [ChannelCount]Mode
	for i, t := range e.timers {
		modes[i] = t.Mode
	}
	return modes
}

// Timer returns a copy of a channel's timer.
func (e *Engine) Timer(c Channel) (ModeTimer, error) {
	if !c.Valid() {
		return ModeTimer{}, fmt.Errorf("%w: %d", ErrInvalidChannel, int(c))
	}
	return e.timers[c], nil
}

func (r Request) sameTiming(o Request) bool {
	return r.Mode == o.Mode && r.StartIn == o.StartIn && r.Duration == o.Duration
}

// advance moves a single timer forward. Time left over once StartIn runs out
// in the same tick counts as active time.
func (t *ModeTimer) advance(elapsed time.Duration) error {
	switch t.Mode {
	case ModeOff:
		return nil
	case ModeOn, ModeBlink, ModeStrobe:
	default:
		observed := t.Mode
		*t = ModeTimer{Mode: ModeOff, requested: Request{Mode: ModeOff}}
		return fmt.Errorf("%w: %s", ErrUnsetModeObserved, observed)
	}

	if t.StartIn > 0 {
		if elapsed < t.StartIn {
			t.StartIn -= elapsed
			return nil
		}
		elapsed -= t.StartIn
		t.StartIn = 0
	}
	if elapsed == 0 {
		return nil
	}

	if t.Duration > 0 && t.Active+elapsed >= t.Duration {
		t.expire()
		return nil
	}
	t.Active += elapsed

	if half := t.Mode.halfPeriod(); half > 0 {
		t.phaseElapsed += elapsed
		if (t.phaseElapsed/half)%2 == 1 {
			t.Phase = !t.Phase
		}
		t.phaseElapsed %= half
	}
	return nil
}

// expire reverts a timed mode to Off. The original request is kept so that
// repeating it restarts the channel instead of being treated as a no-op.
func (t *ModeTimer) expire() {
	*t = ModeTimer{
		Mode:      ModeOff,
		Active:    t.Duration,
		requested: t.requested,
	}
}
