// Package status provides a thread-safe status tracker for the signal-panel daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/signal-panel/internal/panel"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing cmd-level helpers from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	AlertMode   string
}

// ChannelState is the mode and output of one relay.
type ChannelState struct {
	Mode   panel.Mode
	Output bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Channels      [panel.ChannelCount]ChannelState
	Switches      panel.SwitchStatus
	Register      byte
	Ready         bool // at least one cycle has completed
	Counts        panel.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
// Channels report Unset until the first Update.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
	for i := range t.snap.Channels {
		t.snap.Channels[i].Mode = panel.ModeUnset
	}
	return t
}

// Update records the outcome of one control cycle.
// Called from runLoop on every tick.
func (t *Tracker) Update(res panel.Result, switches panel.SwitchStatus, counts panel.Counts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.snap.Channels {
		t.snap.Channels[i].Mode = res.Modes[i]
		t.snap.Channels[i].Output = i < len(res.Outputs) && res.Outputs[i]
	}
	t.snap.Switches = switches
	t.snap.Register = res.Byte
	t.snap.Counts = counts
	t.snap.Ready = true
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
