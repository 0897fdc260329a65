package gpio

import (
	"errors"
	"testing"
)

func TestFakeInputRead(t *testing.T) {
	f := NewFakeInput(true, false, true)

	for i, want := range []bool{true, false, true} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: expected %v, got %v", i, want, got)
		}
	}

	// Fourth read should repeat last level
	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != true {
		t.Errorf("repeat: expected true, got %v", got)
	}
}

func TestFakeInputNoLevels(t *testing.T) {
	f := NewFakeInput()

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no levels")
	}
}

func TestFakeInputError(t *testing.T) {
	f := NewFakeInput(true)
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeInputSet(t *testing.T) {
	f := NewFakeInput(true, true, true)
	f.Read()

	f.Set(false)

	for i := 0; i < 3; i++ {
		if got, _ := f.Read(); got {
			t.Errorf("read %d after Set(false): got true", i)
		}
	}
}

func TestFakeInputCloseAndReset(t *testing.T) {
	f := NewFakeInput(true, false)

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Read()
	f.Reset()

	if f.Closed {
		t.Error("Reset should clear Closed")
	}
	if got, _ := f.Read(); got != true {
		t.Errorf("after reset: expected true, got %v", got)
	}
}
