package status

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/signal-panel/internal/panel"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Channels      []ChannelJSON `json:"channels"`
	Switches      SwitchesJSON  `json:"switches"`
	Register      string        `json:"register"`
	Ready         bool          `json:"ready"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"counts"`
	Network       *NetworkJSON  `json:"network,omitempty"`
	Config        ConfigJSON    `json:"config"`
}

// ChannelJSON is one relay in channel order.
type ChannelJSON struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Mode   string `json:"mode"`
	Output bool   `json:"output"`
}

// SwitchesJSON is the last sampled switch status.
type SwitchesJSON struct {
	BlinkLeft     bool `json:"blink_left"`
	BlinkRight    bool `json:"blink_right"`
	Horn          bool `json:"horn"`
	Alert         bool `json:"alert"`
	BoxLight      bool `json:"box_light"`
	PositionLight bool `json:"position_light"`
	FourWay       bool `json:"four_way"`
	DRL           bool `json:"drl"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of controller counts.
type CountsJSON struct {
	Cycles      int `json:"cycles"`
	Transitions int `json:"transitions"`
	Faults      int `json:"faults"`
	Rejected    int `json:"rejected"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	AlertMode   string `json:"alert_mode"`
}

func buildInner(snap Snapshot) StatusInner {
	channels := make([]ChannelJSON, len(snap.Channels))
	for i, c := range snap.Channels {
		channels[i] = ChannelJSON{
			Index:  i,
			Name:   panel.Channel(i).String(),
			Mode:   c.Mode.String(),
			Output: c.Output,
		}
	}

	sw := snap.Switches
	inner := StatusInner{
		Channels: channels,
		Switches: SwitchesJSON{
			BlinkLeft:     sw.BlinkLeft,
			BlinkRight:    sw.BlinkRight,
			Horn:          sw.Horn,
			Alert:         sw.Alert,
			BoxLight:      sw.BoxLight,
			PositionLight: sw.PositionLight,
			FourWay:       sw.FourWay,
			DRL:           sw.DRL,
		},
		Register:      fmt.Sprintf("%08b", snap.Register),
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Cycles:      snap.Counts.Cycles,
			Transitions: snap.Counts.Transitions,
			Faults:      snap.Counts.Faults,
			Rejected:    snap.Counts.Rejected,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			AlertMode:   snap.Config.AlertMode,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
