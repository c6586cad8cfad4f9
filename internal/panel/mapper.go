package panel

import "time"

// MapperConfig holds the alert composite rule settings.
type MapperConfig struct {
	// AlertMode is the mode used while the alert channel is active (On or Strobe).
	AlertMode           Mode
	HornAlertTimeout    time.Duration
	DefaultAlertTimeout time.Duration
}

// DefaultMapperConfig returns the compiled-in alert settings.
func DefaultMapperConfig() MapperConfig {
	return MapperConfig{
		AlertMode:           ModeOn,
		HornAlertTimeout:    HornAlertTimeout,
		DefaultAlertTimeout: DefaultAlertTimeout,
	}
}

// Mapper turns switch snapshots into per-channel requests.
type Mapper struct {
	cfg     MapperConfig
	prev    SwitchStatus
	last    time.Time // time of the previous sample
	started bool

	// Afterglow deadlines of the two alert triggers. Zero when never armed.
	hornUntil  time.Time
	alertUntil time.Time
}

// NewMapper creates a mapper. An AlertMode that is not On or Strobe falls back to On.
func NewMapper(cfg MapperConfig) *Mapper {
	if cfg.AlertMode != ModeOn && cfg.AlertMode != ModeStrobe {
		cfg.AlertMode = ModeOn
	}
	return &Mapper{cfg: cfg}
}

// Map returns the requests for one cycle. Steady and blinker channels are
// requested every cycle (the engine ignores repeats). The alert channel is
// requested on every cycle its switch is held and on release edges of the
// horn or alert switch, so a running afterglow is never cut short.
// The first call requests every channel.
func (m *Mapper) Map(s SwitchStatus, now time.Time) []Request {
	// Hazard lights flash both sides together, so the four-way edge
	// restarts a blinker that was already running.
	hazard := m.started && s.FourWay && !m.prev.FourWay

	left := blinker(ChannelBlinkLeft, s.BlinkLeft || s.FourWay)
	right := blinker(ChannelBlinkRight, s.BlinkRight || s.FourWay)
	left.Restart, right.Restart = hazard, hazard

	reqs := make([]Request, 0, ChannelCount)
	reqs = append(reqs,
		steady(ChannelHorn, s.Horn),
		steady(ChannelPositionLeft, s.PositionLight),
		steady(ChannelPositionRight, s.PositionLight),
		left,
		right,
		steady(ChannelDRL, s.DRL),
		steady(ChannelBoxLight, s.BoxLight),
	)
	if r, ok := m.alert(s, now); ok {
		reqs = append(reqs, r)
	}

	m.prev = s
	m.last = now
	m.started = true
	return reqs
}

// alert applies the alert-after-horn rule. Both release edges arm a deadline
// and re-arm the timer, whichever deadline is later setting its duration.
// The tick that follows in the same cycle covers the interval since the
// previous sample, so the duration is counted from that sample and the
// channel stays lit for the full timeout after the release is seen.
func (m *Mapper) alert(s SwitchStatus, now time.Time) (Request, bool) {
	hornReleased := m.started && m.prev.Horn && !s.Horn
	alertReleased := m.started && m.prev.Alert && !s.Alert

	if hornReleased {
		m.hornUntil = now.Add(m.cfg.HornAlertTimeout)
	}
	if alertReleased {
		m.alertUntil = now.Add(m.cfg.DefaultAlertTimeout)
	}

	if s.Alert {
		return Request{Channel: ChannelAlert, Mode: m.cfg.AlertMode}, true
	}
	if m.started && !hornReleased && !alertReleased {
		return Request{}, false
	}

	until := m.hornUntil
	if m.alertUntil.After(until) {
		until = m.alertUntil
	}
	if !until.After(now) {
		return Request{Channel: ChannelAlert, Mode: ModeOff}, true
	}
	from := now
	if m.started {
		from = m.last
	}
	return Request{
		Channel:  ChannelAlert,
		Mode:     m.cfg.AlertMode,
		Duration: until.Sub(from),
		Restart:  true,
	}, true
}

func steady(c Channel, on bool) Request {
	if on {
		return Request{Channel: c, Mode: ModeOn}
	}
	return Request{Channel: c, Mode: ModeOff}
}

func blinker(c Channel, on bool) Request {
	if on {
		return Request{Channel: c, Mode: ModeBlink}
	}
	return Request{Channel: c, Mode: ModeOff}
}
