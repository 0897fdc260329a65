package debounce

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/sweeney/pulse-logger/internal/clock"
	"github.com/sweeney/pulse-logger/internal/gpio"
)

const interval = 50 * time.Millisecond

type fixture struct {
	d   Debouncer
	in  *gpio.FakeInput
	clk *clock.Fake
}

func setup(t *testing.T, kind Kind, initial bool) *fixture {
	t.Helper()
	in := gpio.NewFakeInput(initial)
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	d, err := New(kind, in, clk, interval)
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return &fixture{d: d, in: in, clk: clk}
}

// step advances the clock by dt, sets the raw level and runs one update.
func (f *fixture) step(t *testing.T, dt time.Duration, level bool) {
	t.Helper()
	f.clk.Advance(dt)
	f.in.Set(level)
	if err := f.d.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestBeginSeedsFromInput(t *testing.T) {
	for _, kind := range []Kind{KindStandard, KindPrompt, KindLockOut} {
		for _, level := range []bool{true, false} {
			f := setup(t, kind, level)
			if f.d.Read() != level {
				t.Errorf("%s: Read after Begin(%v): got %v", kind, level, f.d.Read())
			}
			if f.d.Changed() || f.d.Fell() || f.d.Rose() {
				t.Errorf("%s: edge flags set after Begin", kind)
			}
		}
	}
}

func TestBeginReadError(t *testing.T) {
	in := gpio.NewFakeInput(true)
	in.ReadError = errors.New("line gone")
	d := NewStandard(in, clock.NewFake(time.Now()), interval)

	if err := d.Begin(); err == nil {
		t.Fatal("expected error from Begin")
	}
}

func TestUpdateReadErrorClearsChanged(t *testing.T) {
	f := setup(t, KindStandard, true)
	f.step(t, 0, false)
	f.step(t, interval, false)
	if !f.d.Fell() {
		t.Fatal("expected fell")
	}

	f.in.ReadError = errors.New("read failed")
	if err := f.d.Update(); err == nil {
		t.Fatal("expected error")
	}
	if f.d.Changed() {
		t.Error("changed should be cleared even when the read fails")
	}
	if f.d.Read() {
		t.Error("stable level should be untouched by a failed read")
	}
}

func TestStandardSingleTransition(t *testing.T) {
	f := setup(t, KindStandard, true)

	f.step(t, 10*time.Millisecond, false) // raw change seen, timer starts
	if f.d.Changed() {
		t.Fatal("committed on first differing sample")
	}

	f.step(t, 49*time.Millisecond, false)
	if f.d.Changed() || !f.d.Read() {
		t.Fatal("committed before interval elapsed")
	}

	f.step(t, 1*time.Millisecond, false)
	if !f.d.Fell() {
		t.Fatal("expected fell exactly at interval")
	}
	if f.d.Rose() {
		t.Error("rose and fell both true")
	}

	f.step(t, 1*time.Millisecond, false)
	if f.d.Changed() {
		t.Error("changed should last exactly one update")
	}
	if f.d.Read() {
		t.Error("expected stable low")
	}
}

func TestStandardRise(t *testing.T) {
	f := setup(t, KindStandard, false)
	f.step(t, 0, true)
	f.step(t, interval, true)

	if !f.d.Rose() || f.d.Fell() {
		t.Errorf("expected rose only, got rose=%v fell=%v", f.d.Rose(), f.d.Fell())
	}
}

func TestStandardBounceShorterThanInterval(t *testing.T) {
	f := setup(t, KindStandard, true)

	f.step(t, 0, false)
	f.step(t, 30*time.Millisecond, true) // back to stable before interval
	f.step(t, 100*time.Millisecond, true)

	if !f.d.Read() || f.d.Changed() {
		t.Error("bounce shorter than interval should not commit")
	}
}

// Raw input toggles every 20ms for 200ms, then holds low. Debounced must
// stay high throughout and fall only 50ms after the final toggle.
func TestStandardToggleThenHoldLow(t *testing.T) {
	f := setup(t, KindStandard, true)
	const tick = 5 * time.Millisecond

	raw := func(ms int) bool {
		if ms >= 200 {
			return false
		}
		return (ms/20)%2 == 1
	}

	for ms := 0; ms <= 300; ms += 5 {
		dt := tick
		if ms == 0 {
			dt = 0
		}
		f.step(t, dt, raw(ms))

		switch {
		case ms < 250:
			if !f.d.Read() || f.d.Changed() {
				t.Fatalf("t=%dms: debounced changed before input held for interval", ms)
			}
		case ms == 250:
			if !f.d.Fell() {
				t.Fatalf("t=%dms: expected fell", ms)
			}
		default:
			if f.d.Read() || f.d.Changed() {
				t.Fatalf("t=%dms: expected stable low with no edge", ms)
			}
		}
	}
}

func TestStandardMillisWraparound(t *testing.T) {
	f := setup(t, KindStandard, true)
	f.clk.SetMillis(^uint32(0) - 20)

	f.step(t, 0, false)
	f.step(t, 30*time.Millisecond, false)
	if f.d.Changed() {
		t.Fatal("committed early across wrap")
	}
	f.step(t, 20*time.Millisecond, false)
	if !f.d.Fell() {
		t.Fatal("expected fell after interval across wrap")
	}
}

// Randomized: a Standard commit only ever happens once the sampled raw level
// has been constant for at least the interval, and edge flags are consistent.
func TestStandardCommitRequiresStableInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f := setup(t, KindStandard, false)

	now := time.Duration(0)
	lastRaw := false
	lastRawChange := now

	for i := 0; i < 20000; i++ {
		dt := time.Duration(rng.Intn(30)) * time.Millisecond
		level := lastRaw
		if rng.Intn(4) == 0 {
			level = !level
		}
		now += dt
		if level != lastRaw {
			lastRaw = level
			lastRawChange = now
		}

		before := f.d.Read()
		f.step(t, dt, level)
		after := f.d.Read()

		checkEdgeFlags(t, f.d, before, after)
		if before != after {
			if after != level {
				t.Fatalf("step %d: committed to %v while raw is %v", i, after, level)
			}
			if held := now - lastRawChange; held < interval {
				t.Fatalf("step %d: committed after raw held only %v", i, held)
			}
		}
	}
}

func checkEdgeFlags(t *testing.T, d Debouncer, before, after bool) {
	t.Helper()
	if d.Fell() && d.Rose() {
		t.Fatal("fell and rose both true")
	}
	if (d.Fell() || d.Rose()) && !d.Changed() {
		t.Fatal("edge without changed")
	}
	if d.Changed() != (before != after) {
		t.Fatalf("changed=%v but level went %v -> %v", d.Changed(), before, after)
	}
	if d.Fell() != (before && !after) {
		t.Fatal("fell does not match transition")
	}
}

func TestPreviousDuration(t *testing.T) {
	f := setup(t, KindStandard, true)

	f.clk.Advance(time.Second)
	f.step(t, 0, false)
	f.step(t, interval, false)
	if !f.d.Fell() {
		t.Fatal("expected fell")
	}
	if got, want := f.d.PreviousDuration(), time.Second+interval; got != want {
		t.Errorf("PreviousDuration: got %v, want %v", got, want)
	}

	f.clk.Advance(200 * time.Millisecond)
	if got := f.d.CurrentDuration(); got != 200*time.Millisecond {
		t.Errorf("CurrentDuration: got %v, want 200ms", got)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"standard", KindStandard, false},
		{"prompt", KindPrompt, false},
		{"lockout", KindLockOut, false},
		{"bounce2", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q): err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("nope", gpio.NewFakeInput(true), clock.NewFake(time.Now()), interval); err == nil {
		t.Error("expected error for unknown kind")
	}
}
