// Command signal-panel samples the dashboard switches, drives the relay board
// through its shift register and publishes channel mode changes to MQTT.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/signal-panel/internal/config"
	"github.com/sweeney/signal-panel/internal/gpio"
	"github.com/sweeney/signal-panel/internal/mqtt"
	"github.com/sweeney/signal-panel/internal/panel"
	"github.com/sweeney/signal-panel/internal/status"
	"github.com/sweeney/signal-panel/internal/web"
)

var (
	configPath    string
	logLevel      string
	printDefault  bool
	installPrefix string
	installReset  bool

	mainCmd = &cobra.Command{
		Use:               "signal-panel",
		Short:             "Vehicle lighting and signal panel controller",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setLogLevel,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the control loop",
		Args:  cobra.NoArgs,
		RunE:  runPanel,
	}
	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Print the current switch state and exit",
		Args:  cobra.NoArgs,
		RunE:  printState,
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective board file",
		Args:  cobra.NoArgs,
		RunE:  printConfig,
	}
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the binary, systemd unit and board file",
		Args:  cobra.NoArgs,
		RunE:  runInstall,
	}
)

func main() {
	addOverrideFlags(runCmd)
	configCmd.Flags().BoolVar(&printDefault, "default", false, "Print the commented compiled-in board file")
	installCmd.Flags().BoolVar(&installReset, "reset", false, "Overwrite the board file even if it already exists")
	installCmd.Flags().StringVarP(&installPrefix, "prefix", "p", "", "Install prefix, default is /")
	mainCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Board file path (default: compiled-in board)")
	mainCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	mainCmd.AddCommand(runCmd, stateCmd, configCmd, installCmd)

	if err := mainCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func setLogLevel(cmd *cobra.Command, args []string) error {
	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// addOverrideFlags registers the flags that take precedence over the board file.
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("poll", 20*time.Millisecond, "Switch polling interval (overrides poll_ms)")
	cmd.Flags().Duration("heartbeat", 15*time.Minute, "Heartbeat interval, 0 to disable (overrides heartbeat_ms)")
	cmd.Flags().String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (overrides broker)")
	cmd.Flags().String("http", ":80", "HTTP status address, empty to disable (overrides http)")
}

// loadConfig reads the board file and applies the flags that were set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("poll") {
		d, _ := flags.GetDuration("poll")
		cfg.PollMs = d.Milliseconds()
	}
	if flags.Changed("heartbeat") {
		d, _ := flags.GetDuration("heartbeat")
		cfg.HeartbeatMs = d.Milliseconds()
	}
	if flags.Changed("broker") {
		cfg.Broker, _ = flags.GetString("broker")
	}
	if flags.Changed("http") {
		cfg.HTTPAddr, _ = flags.GetString("http")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runPanel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return run(cfg)
}

func printState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reader, err := gpio.NewRealReader(cfg.Chip, cfg.Wiring())
	if err != nil {
		return fmt.Errorf("init switches: %w", err)
	}
	defer reader.Close()

	sw, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read switches: %w", err)
	}
	fmt.Print(formatSwitches(sw))
	return nil
}

func printConfig(cmd *cobra.Command, args []string) error {
	if printDefault {
		_, err := io.WriteString(os.Stdout, config.DefaultFile)
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return writeConfig(os.Stdout, cfg)
}

// writeConfig encodes cfg as a board file.
func writeConfig(w io.Writer, cfg config.Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

func run(cfg config.Config) error {
	reader, err := gpio.NewRealReader(cfg.Chip, cfg.Wiring())
	if err != nil {
		return fmt.Errorf("init switches: %w", err)
	}
	defer reader.Close()

	register, err := gpio.NewRealRegister(cfg.Chip, cfg.RegisterPins())
	if err != nil {
		return fmt.Errorf("init register: %w", err)
	}
	defer register.Close()

	// The control loop only ever queues; a stalled broker must not hold up
	// the relays.
	conn := mqtt.NewRealPublisher(cfg.Broker)
	publisher := mqtt.NewAsyncPublisher(conn, mqtt.QueueCapacity)
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to queue startup event: %v", err)
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.WithFields(log.Fields{
		"chip":       cfg.Chip,
		"poll":       cfg.Poll(),
		"broker":     cfg.Broker,
		"heartbeat":  cfg.Heartbeat(),
		"alert_mode": cfg.AlertMode,
	}).Info("started")

	ticker := time.NewTicker(cfg.Poll())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(reader, register, publisher, conn, tracker, cfg.MapperConfig(), cfg.Heartbeat(), time.Now, ticker.C, sigCh)
}

func runLoop(reader gpio.Reader, register gpio.Register, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, mcfg panel.MapperConfig, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctrl := panel.NewController(mcfg, now())

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			// All relays off before anything else can fail.
			if err := register.Transmit(0); err != nil {
				log.Printf("failed to clear register: %v", err)
			}

			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to queue shutdown event: %v", err)
			} else {
				log.Printf("queued shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			sw, err := reader.Read()
			if err != nil {
				// Outputs keep their last transmitted state.
				log.Printf("switch read error: %v", err)
				continue
			}

			res, err := ctrl.Step(panel.Input{Switches: sw, Time: t})
			if err != nil {
				log.WithError(err).Warn("control cycle rejected")
			}
			for _, f := range res.Faults {
				log.WithFields(log.Fields{"channel": f.Channel.String()}).WithError(f.Err).Warn("channel fault")
			}

			if err := register.Transmit(res.Byte); err != nil {
				log.Printf("register transmit error: %v", err)
			}

			for _, event := range res.Events {
				log.WithFields(log.Fields{
					"channel":  event.Channel.String(),
					"from":     event.From.String(),
					"to":       event.To.String(),
					"register": fmt.Sprintf("%08b", event.Output),
				}).Info("mode change")
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(res, sw, ctrl.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if hbData := ctrl.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.WithFields(log.Fields{
					"uptime":      hbData.Uptime,
					"cycles":      hbData.Counts.Cycles,
					"transitions": hbData.Counts.Transitions,
					"faults":      hbData.Counts.Faults,
					"rejected":    hbData.Counts.Rejected,
				}).Info("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Chip:        cfg.Chip,
		PollMs:      cfg.PollMs,
		HeartbeatMs: cfg.HeartbeatMs,
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		AlertMode:   cfg.AlertMode,
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// formatSwitches renders one "name: ON|OFF" line per logical switch.
func formatSwitches(sw panel.SwitchStatus) string {
	rows := []struct {
		name string
		on   bool
	}{
		{"blink_left", sw.BlinkLeft},
		{"blink_right", sw.BlinkRight},
		{"four_way", sw.FourWay},
		{"horn", sw.Horn},
		{"alert", sw.Alert},
		{"position_light", sw.PositionLight},
		{"box_light", sw.BoxLight},
		{"drl", sw.DRL},
	}

	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s: %s\n", r.name, stateString(r.on))
	}
	return b.String()
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
