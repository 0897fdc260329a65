package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewFake(start)

	c.Advance(1500 * time.Millisecond)

	if c.Millis() != 1500 {
		t.Errorf("Millis: got %d, want 1500", c.Millis())
	}
	if !c.Now().Equal(start.Add(1500 * time.Millisecond)) {
		t.Errorf("Now: got %v", c.Now())
	}
}

func TestFakeMillisWrap(t *testing.T) {
	c := NewFake(time.Now())
	c.SetMillis(^uint32(0) - 10)
	before := c.Millis()

	c.Advance(20 * time.Millisecond)

	if got := c.Millis() - before; got != 20 {
		t.Errorf("elapsed across wrap: got %d, want 20", got)
	}
}

func TestFakeSetLeavesMillis(t *testing.T) {
	c := NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c.Advance(time.Second)

	c.Set(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))

	if c.Millis() != 1000 {
		t.Errorf("Millis: got %d, want 1000", c.Millis())
	}
	if c.Now().Year() != 2000 {
		t.Errorf("Now: got %v", c.Now())
	}
}

func TestRealMillisStartsNearZero(t *testing.T) {
	c := NewReal()
	if c.Millis() > 1000 {
		t.Errorf("Millis right after NewReal: got %d", c.Millis())
	}
}
