package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/signal-panel/internal/panel"
)

var testWiring = Wiring{
	BlinkLeft:     []int{5, 12},
	BlinkRight:    []int{6, 13},
	Horn:          []int{19, 20},
	Alert:         []int{26, 21},
	BoxLight:      []int{16},
	PositionLight: []int{17},
	FourWay:       []int{27},
}

// idle returns raw values with every line pulled high (all switches open).
func idle(w Wiring) map[int]int {
	raw := make(map[int]int)
	for _, l := range w.Lines() {
		raw[l] = 1
	}
	return raw
}

func TestActive(t *testing.T) {
	if !Active(0) {
		t.Error("raw 0 (pulled to ground) should be active")
	}
	if Active(1) {
		t.Error("raw 1 should be inactive")
	}
}

func TestCombineIdle(t *testing.T) {
	got := Combine(idle(testWiring), testWiring)
	want := panel.SwitchStatus{DRL: true}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestCombineRedundantSwitches(t *testing.T) {
	tests := []struct {
		name string
		low  []int
		want panel.SwitchStatus
	}{
		{"dashboard blink left", []int{5}, panel.SwitchStatus{BlinkLeft: true, DRL: true}},
		{"keypad blink left", []int{12}, panel.SwitchStatus{BlinkLeft: true, DRL: true}},
		{"both horn lines", []int{19, 20}, panel.SwitchStatus{Horn: true, DRL: true}},
		{"keypad alert", []int{21}, panel.SwitchStatus{Alert: true, DRL: true}},
		{"four way and box", []int{27, 16}, panel.SwitchStatus{FourWay: true, BoxLight: true, DRL: true}},
		{"position", []int{17}, panel.SwitchStatus{PositionLight: true, DRL: true}},
		{"blink right keypad", []int{13}, panel.SwitchStatus{BlinkRight: true, DRL: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := idle(testWiring)
			for _, l := range tt.low {
				raw[l] = 0
			}
			if got := Combine(raw, testWiring); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestCombineMissingLineInactive(t *testing.T) {
	got := Combine(map[int]int{}, testWiring)
	if got.Horn || got.BlinkLeft || got.FourWay {
		t.Errorf("missing lines should read inactive, got %+v", got)
	}
}

func TestCombineWiredDRL(t *testing.T) {
	w := testWiring
	w.DRL = []int{4}

	raw := idle(w)
	if Combine(raw, w).DRL {
		t.Error("wired DRL switch open should read off")
	}
	raw[4] = 0
	if !Combine(raw, w).DRL {
		t.Error("wired DRL switch closed should read on")
	}
}

func TestWiringLines(t *testing.T) {
	w := Wiring{
		Horn:     []int{20, 19},
		Alert:    []int{19},
		FourWay:  []int{3},
		BoxLight: nil,
	}
	got := w.Lines()
	want := []int{3, 19, 20}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestBitsMSBFirst(t *testing.T) {
	tests := []struct {
		b    byte
		want [8]int
	}{
		{0x00, [8]int{0, 0, 0, 0, 0, 0, 0, 0}},
		{0x01, [8]int{0, 0, 0, 0, 0, 0, 0, 1}},
		{0x80, [8]int{1, 0, 0, 0, 0, 0, 0, 0}},
		{0xA5, [8]int{1, 0, 1, 0, 0, 1, 0, 1}},
	}
	for _, tt := range tests {
		if got := Bits(tt.b); got != tt.want {
			t.Errorf("Bits(%#x): got %v, want %v", tt.b, got, tt.want)
		}
	}
}

func TestRunCloseJoinsFailures(t *testing.T) {
	errLatch := errors.New("latch busy")
	errChip := errors.New("chip gone")
	var ran []string
	step := func(name string, err error) closeStep {
		return closeStep{name, func() error {
			ran = append(ran, name)
			return err
		}}
	}

	err := runClose([]closeStep{
		step("clear register", nil),
		step("close latch pin", errLatch),
		step("close data pin", nil),
		step("close chip", errChip),
	})

	if len(ran) != 4 {
		t.Errorf("expected every step to run, ran %v", ran)
	}
	if !errors.Is(err, errLatch) || !errors.Is(err, errChip) {
		t.Fatalf("expected both failures to be wrapped, got %v", err)
	}
	if got := err.Error(); got != "close latch pin: latch busy\nclose chip: chip gone" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRunCloseNoFailures(t *testing.T) {
	if err := runClose([]closeStep{{"close chip", func() error { return nil }}}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := runClose(nil); err != nil {
		t.Errorf("expected nil for no steps, got %v", err)
	}
}
