// Package mqtt provides MQTT publishing with abstraction for testing.
// The panel only publishes; it never subscribes or accepts commands.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/signal-panel/internal/panel"
)

// Topic is the MQTT topic for channel mode transitions.
const Topic = "vehicle/signal-panel/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "vehicle/signal-panel/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a channel transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event panel.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Panel PanelPayload `json:"panel"`
}

// PanelPayload contains the transition details.
type PanelPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Channel   string `json:"channel"`
	Index     int    `json:"index"`
	From      string `json:"from"`
	To        string `json:"to"`
	Register  string `json:"register"` // output byte as 8 binary digits, channel 7 first
}

// EventModeChange is the event name of channel transition payloads.
const EventModeChange = "MODE_CHANGE"

// FormatPayload creates the JSON payload for a channel transition.
func FormatPayload(event panel.Event) ([]byte, error) {
	payload := Payload{
		Panel: PanelPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     EventModeChange,
			Channel:   event.Channel.String(),
			Index:     int(event.Channel),
			From:      event.From.String(),
			To:        event.To.String(),
			Register:  fmt.Sprintf("%08b", event.Output),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
// A zero Timestamp is omitted.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Event:  event.Event,
			Reason: event.Reason,
		},
	}
	if !event.Timestamp.IsZero() {
		payload.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes when the panel
// drops off without a clean shutdown. It carries no timestamp: the broker
// sends it long after the session was set up.
func WillPayload() []byte {
	b, _ := FormatSystemPayload(SystemEvent{Event: "SHUTDOWN", Reason: "MQTT_DISCONNECT"})
	return b
}
