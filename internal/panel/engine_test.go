package panel

import (
	"errors"
	"testing"
	"time"
)

// requestAll puts every channel into Off so ticks report no faults.
func requestAll(t *testing.T, e *Engine) {
	t.Helper()
	for c := Channel(0); c < ChannelCount; c++ {
		if err := e.Request(Request{Channel: c, Mode: ModeOff}); err != nil {
			t.Fatalf("request %s off: %v", c, err)
		}
	}
}

func mustTick(t *testing.T, e *Engine, d time.Duration) {
	t.Helper()
	faults, err := e.Tick(d)
	if err != nil {
		t.Fatalf("tick %v: %v", d, err)
	}
	if len(faults) != 0 {
		t.Fatalf("tick %v: unexpected faults %v", d, faults)
	}
}

func TestNewEngineUnset(t *testing.T) {
	e := NewEngine()
	for i, m := range e.Modes() {
		if m != ModeUnset {
			t.Errorf("channel %d: expected UNSET, got %s", i, m)
		}
	}
	for i, on := range e.Snapshot() {
		if on {
			t.Errorf("channel %d: unset channel should output false", i)
		}
	}
}

func TestRequestOnOutputsTrue(t *testing.T) {
	for c := Channel(0); c < ChannelCount; c++ {
		for _, d := range []time.Duration{time.Millisecond, 100 * time.Millisecond, time.Hour} {
			e := NewEngine()
			requestAll(t, e)
			if err := e.Request(Request{Channel: c, Mode: ModeOn}); err != nil {
				t.Fatalf("request: %v", err)
			}
			mustTick(t, e, d)
			snap := e.Snapshot()
			if !snap[c] {
				t.Errorf("channel %s after tick %v: expected true", c, d)
			}
			for i, on := range snap {
				if Channel(i) != c && on {
					t.Errorf("channel %d should be off", i)
				}
			}
		}
	}
}

func TestRequestInvalidChannel(t *testing.T) {
	e := NewEngine()
	for _, c := range []Channel{-1, ChannelCount, 100} {
		err := e.Request(Request{Channel: c, Mode: ModeOn})
		if !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("channel %d: expected ErrInvalidChannel, got %v", int(c), err)
		}
	}
}

func TestRequestInvalidMode(t *testing.T) {
	e := NewEngine()
	for _, m := range []Mode{ModeUnset, Mode(-1), Mode(42)} {
		err := e.Request(Request{Channel: ChannelHorn, Mode: m})
		if !errors.Is(err, ErrInvalidMode) {
			t.Errorf("mode %s: expected ErrInvalidMode, got %v", m, err)
		}
	}
}

func TestRequestInvalidTiming(t *testing.T) {
	e := NewEngine()
	err := e.Request(Request{Channel: ChannelHorn, Mode: ModeOn, StartIn: -time.Millisecond})
	if !errors.Is(err, ErrInvalidTiming) {
		t.Errorf("negative start_in: expected ErrInvalidTiming, got %v", err)
	}
	err = e.Request(Request{Channel: ChannelHorn, Mode: ModeOn, Duration: -time.Millisecond})
	if !errors.Is(err, ErrInvalidTiming) {
		t.Errorf("negative duration: expected ErrInvalidTiming, got %v", err)
	}
	if e.Modes()[ChannelHorn] != ModeUnset {
		t.Error("rejected request must not change the channel")
	}
}

func TestTickRejectsNonPositiveElapsed(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelBlinkLeft, Mode: ModeBlink, Duration: time.Second})
	e.Request(Request{Channel: ChannelAlert, Mode: ModeOn, StartIn: 50 * time.Millisecond})
	mustTick(t, e, 30*time.Millisecond)

	before := e.timers

	for _, d := range []time.Duration{0, -time.Millisecond, -time.Hour} {
		faults, err := e.Tick(d)
		if !errors.Is(err, ErrInvalidElapsed) {
			t.Errorf("tick %v: expected ErrInvalidElapsed, got %v", d, err)
		}
		if faults != nil {
			t.Errorf("tick %v: expected no faults, got %v", d, faults)
		}
	}

	if e.timers != before {
		t.Error("rejected tick changed timer state")
	}
}

func TestUnsetChannelForcedOff(t *testing.T) {
	e := NewEngine()
	e.Request(Request{Channel: ChannelHorn, Mode: ModeOn})

	faults, err := e.Tick(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(faults) != ChannelCount-1 {
		t.Fatalf("expected %d faults, got %d", ChannelCount-1, len(faults))
	}
	for _, f := range faults {
		if f.Channel == ChannelHorn {
			t.Error("requested channel reported as fault")
		}
		if !errors.Is(f.Err, ErrUnsetModeObserved) {
			t.Errorf("channel %s: expected ErrUnsetModeObserved, got %v", f.Channel, f.Err)
		}
	}

	modes := e.Modes()
	for c := ChannelPositionLeft; c < ChannelCount; c++ {
		if modes[c] != ModeOff {
			t.Errorf("channel %s: expected OFF after fault, got %s", c, modes[c])
		}
	}
	if !e.Snapshot()[ChannelHorn] {
		t.Error("a fault on other channels must not affect the horn")
	}

	// Faults are reported once; the channels are now Off.
	faults, _ = e.Tick(10 * time.Millisecond)
	if len(faults) != 0 {
		t.Errorf("expected no faults on second tick, got %d", len(faults))
	}
}

func TestBlinkPhaseToggles(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelBlinkLeft, Mode: ModeBlink})

	const step = 10 * time.Millisecond
	window := 2 * BlinkSpeed
	toggles, onTime, offTime := 0, time.Duration(0), time.Duration(0)
	prev := e.Snapshot()[ChannelBlinkLeft]
	if !prev {
		t.Fatal("blink must start in the on phase")
	}

	for elapsed := time.Duration(0); elapsed < window; elapsed += step {
		mustTick(t, e, step)
		cur := e.Snapshot()[ChannelBlinkLeft]
		if cur != prev {
			toggles++
		}
		if cur {
			onTime += step
		} else {
			offTime += step
		}
		prev = cur
	}

	if toggles != 2 {
		t.Errorf("expected 2 toggles in %v, got %d", window, toggles)
	}
	if onTime != offTime {
		t.Errorf("expected equal on/off time, got on=%v off=%v", onTime, offTime)
	}
}

func TestStrobeUsesStrobeSpeed(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelAlert, Mode: ModeStrobe})

	mustTick(t, e, StrobeSpeed-time.Millisecond)
	if !e.Snapshot()[ChannelAlert] {
		t.Error("strobe should still be on before one half period")
	}
	mustTick(t, e, time.Millisecond)
	if e.Snapshot()[ChannelAlert] {
		t.Error("strobe should be off after one half period")
	}
	mustTick(t, e, StrobeSpeed)
	if !e.Snapshot()[ChannelAlert] {
		t.Error("strobe should be on after two half periods")
	}
}

func TestBlinkLargeTickSkipsWholePeriods(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelBlinkRight, Mode: ModeBlink})

	// Three half periods: on -> off -> on -> off.
	mustTick(t, e, 3*BlinkSpeed)
	if e.Snapshot()[ChannelBlinkRight] {
		t.Error("expected off phase after three half periods")
	}
	tm, _ := e.Timer(ChannelBlinkRight)
	if tm.phaseElapsed != 0 {
		t.Errorf("expected phase to restart on the boundary, got %v into it", tm.phaseElapsed)
	}
}

func TestRequestIdempotent(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	r := Request{Channel: ChannelBlinkLeft, Mode: ModeBlink, Duration: 5 * time.Second}
	e.Request(r)
	mustTick(t, e, BlinkSpeed+50*time.Millisecond)

	before, _ := e.Timer(ChannelBlinkLeft)
	if err := e.Request(r); err != nil {
		t.Fatalf("repeat request: %v", err)
	}
	after, _ := e.Timer(ChannelBlinkLeft)

	if before != after {
		t.Errorf("repeat request restarted the timer: before=%+v after=%+v", before, after)
	}
	if after.Phase {
		t.Error("phase should still be off after the first half period")
	}
}

func TestRequestDifferentTimingResets(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelBlinkLeft, Mode: ModeBlink})
	mustTick(t, e, BlinkSpeed+50*time.Millisecond)

	e.Request(Request{Channel: ChannelBlinkLeft, Mode: ModeBlink, Duration: time.Second})
	tm, _ := e.Timer(ChannelBlinkLeft)
	if !tm.Phase {
		t.Error("new timing should restart in the on phase")
	}
	if tm.Active != 0 {
		t.Errorf("expected active time reset, got %v", tm.Active)
	}
	if tm.Duration != time.Second {
		t.Errorf("expected duration 1s, got %v", tm.Duration)
	}
}

func TestLastRequestWins(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelHorn, Mode: ModeOn})
	e.Request(Request{Channel: ChannelHorn, Mode: ModeStrobe})
	e.Request(Request{Channel: ChannelHorn, Mode: ModeOff})
	mustTick(t, e, time.Millisecond)

	if got := e.Modes()[ChannelHorn]; got != ModeOff {
		t.Errorf("expected OFF, got %s", got)
	}
}

func TestDurationExpiry(t *testing.T) {
	const d = time.Second
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelAlert, Mode: ModeOn, Duration: d})

	var sum time.Duration
	for sum+100*time.Millisecond < d {
		mustTick(t, e, 100*time.Millisecond)
		sum += 100 * time.Millisecond
		if !e.Snapshot()[ChannelAlert] {
			t.Fatalf("channel off after %v, before duration %v", sum, d)
		}
	}

	mustTick(t, e, 150*time.Millisecond)
	if e.Snapshot()[ChannelAlert] {
		t.Errorf("channel still on after %v", sum+150*time.Millisecond)
	}
	if got := e.Modes()[ChannelAlert]; got != ModeOff {
		t.Errorf("expected OFF after expiry, got %s", got)
	}
}

func TestDurationExpiresExactlyAtBoundary(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelAlert, Mode: ModeOn, Duration: HornAlertTimeout})

	mustTick(t, e, HornAlertTimeout-time.Millisecond)
	if !e.Snapshot()[ChannelAlert] {
		t.Fatal("expected on just before the duration")
	}
	mustTick(t, e, time.Millisecond)
	if e.Snapshot()[ChannelAlert] {
		t.Error("expected off once the duration has elapsed")
	}
}

func TestBlinkDurationExpiry(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelBlinkLeft, Mode: ModeBlink, Duration: 3 * BlinkSpeed})

	mustTick(t, e, 3*BlinkSpeed)
	if got := e.Modes()[ChannelBlinkLeft]; got != ModeOff {
		t.Errorf("expected OFF after duration, got %s", got)
	}
}

func TestExpiredRequestRestarts(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	r := Request{Channel: ChannelAlert, Mode: ModeOn, Duration: 100 * time.Millisecond}
	e.Request(r)
	mustTick(t, e, 200*time.Millisecond)
	if e.Snapshot()[ChannelAlert] {
		t.Fatal("expected expiry")
	}

	e.Request(r)
	mustTick(t, e, 50*time.Millisecond)
	if !e.Snapshot()[ChannelAlert] {
		t.Error("same request after expiry should restart the channel")
	}
}

func TestRestartReplacesRepeatedRequest(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	r := Request{Channel: ChannelAlert, Mode: ModeOn, Duration: time.Second}
	e.Request(r)
	mustTick(t, e, 700*time.Millisecond)

	// A plain repeat keeps the countdown.
	e.Request(r)
	if tm, _ := e.Timer(ChannelAlert); tm.Active != 700*time.Millisecond {
		t.Fatalf("repeat reset the timer: active %v", tm.Active)
	}

	r.Restart = true
	if err := e.Request(r); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if tm, _ := e.Timer(ChannelAlert); tm.Active != 0 {
		t.Errorf("expected a fresh timer, active %v", tm.Active)
	}
	mustTick(t, e, 700*time.Millisecond)
	if !e.Snapshot()[ChannelAlert] {
		t.Error("restarted timer expired on the old countdown")
	}
}

func TestStartInDelaysMode(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelBlinkLeft, Mode: ModeBlink, StartIn: 200 * time.Millisecond})

	mustTick(t, e, 100*time.Millisecond)
	if e.Snapshot()[ChannelBlinkLeft] {
		t.Error("expected off while start_in is pending")
	}
	tm, _ := e.Timer(ChannelBlinkLeft)
	if tm.StartIn != 100*time.Millisecond {
		t.Errorf("expected 100ms start_in left, got %v", tm.StartIn)
	}

	// 100ms finishes the delay, the remaining 50ms is active time.
	mustTick(t, e, 150*time.Millisecond)
	tm, _ = e.Timer(ChannelBlinkLeft)
	if !e.Snapshot()[ChannelBlinkLeft] {
		t.Error("expected on phase once start_in has elapsed")
	}
	if tm.Active != 50*time.Millisecond {
		t.Errorf("expected 50ms active, got %v", tm.Active)
	}
}

func TestStartInDoesNotCountTowardDuration(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelHorn, Mode: ModeOn, StartIn: time.Second, Duration: time.Second})

	mustTick(t, e, 1500*time.Millisecond)
	if !e.Snapshot()[ChannelHorn] {
		t.Error("expected on: only 500ms of the duration is used")
	}
	mustTick(t, e, 500*time.Millisecond)
	if e.Snapshot()[ChannelHorn] {
		t.Error("expected off after start_in + duration")
	}
}

func TestSnapshotLengthAndOrder(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	e.Request(Request{Channel: ChannelPositionRight, Mode: ModeOn})
	e.Request(Request{Channel: ChannelBoxLight, Mode: ModeOn})
	mustTick(t, e, time.Millisecond)

	for i := 0; i < 3; i++ {
		snap := e.Snapshot()
		if len(snap) != ChannelCount {
			t.Fatalf("expected length %d, got %d", ChannelCount, len(snap))
		}
		want := []bool{false, false, true, false, false, false, false, true}
		for c := range want {
			if snap[c] != want[c] {
				t.Errorf("call %d channel %d: expected %v, got %v", i, c, want[c], snap[c])
			}
		}
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	e := NewEngine()
	requestAll(t, e)
	snap := e.Snapshot()
	snap[0] = true
	if e.Snapshot()[0] {
		t.Error("mutating the snapshot changed engine state")
	}
}

func TestTimerInvalidChannel(t *testing.T) {
	e := NewEngine()
	if _, err := e.Timer(ChannelCount); !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("expected ErrInvalidChannel, got %v", err)
	}
}
