// Package config loads the board wiring file.
// Timing constants are compiled in (see package panel); the file only
// describes which GPIO lines the switches and the shift register use.
package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/signal-panel/internal/gpio"
	"github.com/sweeney/signal-panel/internal/panel"
)

// Config is the decoded board file.
type Config struct {
	Chip        string   `toml:"chip"`
	PollMs      int64    `toml:"poll_ms"`
	HeartbeatMs int64    `toml:"heartbeat_ms"`
	Broker      string   `toml:"broker"`
	HTTPAddr    string   `toml:"http"`
	AlertMode   string   `toml:"alert_mode"`
	Switch      Switches `toml:"switch"`
	Register    Register `toml:"register"`
}

// Switches lists the GPIO line offsets of each logical switch.
// Lines of one switch are OR-combined (e.g. dashboard switch or keypad).
type Switches struct {
	BlinkLeft     []int `toml:"blink_left"`
	BlinkRight    []int `toml:"blink_right"`
	Horn          []int `toml:"horn"`
	Alert         []int `toml:"alert"`
	BoxLight      []int `toml:"box_light"`
	PositionLight []int `toml:"position_light"`
	FourWay       []int `toml:"four_way"`
	DRL           []int `toml:"drl"` // empty = always on
}

// Register holds the shift register control lines.
type Register struct {
	Latch        int `toml:"latch"`
	Clock        int `toml:"clock"`
	Data         int `toml:"data"`
	OutputEnable int `toml:"output_enable"` // active low, -1 if hard-wired
}

// Default returns the compiled-in board configuration.
func Default() Config {
	var c Config
	if _, err := toml.Decode(DefaultFile, &c); err != nil {
		panic(fmt.Sprintf("config: default board file: %v", err))
	}
	return c
}

// Load reads a board file on top of the defaults. Keys missing from the file
// keep their default values. An empty path returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	return c, nil
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs []error

	if c.Chip == "" {
		errs = append(errs, errors.New("chip must not be empty"))
	}
	if c.PollMs <= 0 {
		errs = append(errs, fmt.Errorf("poll_ms must be positive, got %d", c.PollMs))
	}
	if c.HeartbeatMs < 0 {
		errs = append(errs, fmt.Errorf("heartbeat_ms must not be negative, got %d", c.HeartbeatMs))
	}
	if m, err := panel.ParseMode(c.AlertMode); err != nil {
		errs = append(errs, fmt.Errorf("alert_mode: %w", err))
	} else if m != panel.ModeOn && m != panel.ModeStrobe {
		errs = append(errs, fmt.Errorf("alert_mode must be on or strobe, got %q", c.AlertMode))
	}

	required := map[string][]int{
		"blink_left":     c.Switch.BlinkLeft,
		"blink_right":    c.Switch.BlinkRight,
		"horn":           c.Switch.Horn,
		"alert":          c.Switch.Alert,
		"box_light":      c.Switch.BoxLight,
		"position_light": c.Switch.PositionLight,
		"four_way":       c.Switch.FourWay,
	}
	for _, name := range sortedKeys(required) {
		if len(required[name]) == 0 {
			errs = append(errs, fmt.Errorf("switch.%s: no lines configured", name))
		}
	}

	// A line may serve several switches, but never a switch and the register.
	inputs := make(map[int]bool)
	for _, lines := range append(c.Switch.all(), c.Switch.DRL) {
		for _, l := range lines {
			if l < 0 {
				errs = append(errs, fmt.Errorf("switch line %d must not be negative", l))
			}
			inputs[l] = true
		}
	}

	outputs := map[string]int{
		"latch": c.Register.Latch,
		"clock": c.Register.Clock,
		"data":  c.Register.Data,
	}
	if c.Register.OutputEnable >= 0 {
		outputs["output_enable"] = c.Register.OutputEnable
	}
	used := make(map[int]string)
	for _, name := range sortedKeys(outputs) {
		l := outputs[name]
		if l < 0 {
			errs = append(errs, fmt.Errorf("register.%s line %d must not be negative", name, l))
			continue
		}
		if inputs[l] {
			errs = append(errs, fmt.Errorf("register.%s line %d is also a switch line", name, l))
		}
		if other, ok := used[l]; ok {
			errs = append(errs, fmt.Errorf("register.%s line %d is also register.%s", name, l, other))
		}
		used[l] = name
	}

	return errors.Join(errs...)
}

// Poll returns the polling interval.
func (c Config) Poll() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval (0 = disabled).
func (c Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// Wiring returns the switch wiring for the GPIO sampler.
func (c Config) Wiring() gpio.Wiring {
	return gpio.Wiring{
		BlinkLeft:     c.Switch.BlinkLeft,
		BlinkRight:    c.Switch.BlinkRight,
		Horn:          c.Switch.Horn,
		Alert:         c.Switch.Alert,
		BoxLight:      c.Switch.BoxLight,
		PositionLight: c.Switch.PositionLight,
		FourWay:       c.Switch.FourWay,
		DRL:           c.Switch.DRL,
	}
}

// RegisterPins returns the shift register wiring.
func (c Config) RegisterPins() gpio.RegisterPins {
	return gpio.RegisterPins{
		Latch:        c.Register.Latch,
		Clock:        c.Register.Clock,
		Data:         c.Register.Data,
		OutputEnable: c.Register.OutputEnable,
	}
}

// MapperConfig returns the alert settings for the controller.
// Call Validate first; an invalid alert mode falls back to On.
func (c Config) MapperConfig() panel.MapperConfig {
	mc := panel.DefaultMapperConfig()
	if m, err := panel.ParseMode(c.AlertMode); err == nil {
		mc.AlertMode = m
	}
	return mc
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s Switches) all() [][]int {
	return [][]int{s.BlinkLeft, s.BlinkRight, s.Horn, s.Alert, s.BoxLight, s.PositionLight, s.FourWay}
}
