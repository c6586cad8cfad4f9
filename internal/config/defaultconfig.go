package config

// DefaultFile is the compiled-in board file. `signal-panel config` prints it
// as a starting point for a custom wiring.
const DefaultFile = `# NOTE: lines are GPIO line offsets on the chip (BCM numbering on a Raspberry Pi)

chip = "gpiochip0"

# How often the switches are sampled and the register is refreshed
poll_ms = 20

# MQTT heartbeat interval (0 disables)
heartbeat_ms = 900000

broker = "tcp://192.168.1.200:1883"

# HTTP status address (empty disables)
http = ":80"

# Alert channel behavior while active: "on" or "strobe"
alert_mode = "on"

# Switches are active low. Several lines for one switch are OR-combined:
# the dashboard switch first, then the keypad key.
[switch]
	blink_left = [5, 12]
	blink_right = [6, 13]
	horn = [19, 20]
	alert = [26, 21]
	box_light = [16]
	position_light = [17]
	four_way = [27]
	# Uncomment to drive the DRL relay from a switch instead of always on
	# drl = [4]

# 74HC595 shift register driving the relay board
[register]
	latch = 22
	clock = 23
	data = 24
	# Active low; set to -1 if OE is hard-wired to ground
	output_enable = 25
`
