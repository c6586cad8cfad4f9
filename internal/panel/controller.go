package panel

import (
	"errors"
	"time"
)

// Controller runs one control cycle per sample: map the switches, apply the
// requests, tick every timer, then read the snapshot. The snapshot is never
// a mix of pre- and post-tick values.
type Controller struct {
	engine        *Engine
	mapper        *Mapper
	last          time.Time
	startTime     time.Time
	lastHeartbeat time.Time
	counts        Counts
	modes         [ChannelCount]Mode
}

// NewController creates a controller. startTime is the reference for the
// first tick and for uptime in heartbeat events.
func NewController(cfg MapperConfig, startTime time.Time) *Controller {
	e := NewEngine()
	return &Controller{
		engine:        e,
		mapper:        NewMapper(cfg),
		last:          startTime,
		startTime:     startTime,
		lastHeartbeat: startTime,
		modes:         e.Modes(),
	}
}

// Step processes one sample. The returned Result is always usable: a
// rejected request leaves its channel as it was, and a rejected tick (clock
// went backwards or stood still) leaves every timer as it was. Such
// rejections are joined into the returned error.
func (c *Controller) Step(in Input) (Result, error) {
	var errs []error

	for _, r := range c.mapper.Map(in.Switches, in.Time) {
		if err := c.engine.Request(r); err != nil {
			c.counts.Rejected++
			errs = append(errs, err)
		}
	}

	faults, err := c.engine.Tick(in.Time.Sub(c.last))
	if err != nil {
		c.counts.Rejected++
		errs = append(errs, err)
	}
	// Resync even on rejection so a clock step does not stall every later tick.
	c.last = in.Time
	c.counts.Cycles++
	c.counts.Faults += len(faults)

	res := Result{
		Outputs: c.engine.Snapshot(),
		Modes:   c.engine.Modes(),
		Faults:  faults,
	}
	res.Byte = Encode(res.Outputs)

	for i, to := range res.Modes {
		from := c.modes[i]
		if from == to || from == ModeUnset {
			continue
		}
		res.Events = append(res.Events, Event{
			Timestamp: in.Time,
			Channel:   Channel(i),
			From:      from,
			To:        to,
			Output:    res.Byte,
		})
	}
	c.counts.Transitions += len(res.Events)
	c.modes = res.Modes

	return res, errors.Join(errs...)
}

// Engine exposes the timers for read-only inspection.
func (c *Controller) Engine() *Engine {
	return c.engine
}

// EventCountsSnapshot returns a copy of the counts.
func (c *Controller) EventCountsSnapshot() Counts {
	return c.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
