package interview

import "testing"

func TestNewClock(t *testing.T) {
	if c := NewClock(5, 45); c.Remaining != 300 {
		t.Errorf("Expected remaining 300, got %d", c.Remaining)
	}
	if c := NewClock(0, 45); c.Remaining != 2700 {
		t.Errorf("Expected default remaining 2700, got %d", c.Remaining)
	}
}

func TestClock_Tick(t *testing.T) {
	c := NewClock(1, 45)
	for i := 1; i < 60; i++ {
		if c.Tick() {
			t.Fatalf("Expected clock to run until tick 60, expired at %d", i)
		}
	}
	if !c.Tick() {
		t.Error("Expected clock to expire on tick 60")
	}
	if c.Remaining != 0 || c.Elapsed != 60 {
		t.Errorf("Expected remaining 0 and elapsed 60, got %d and %d", c.Remaining, c.Elapsed)
	}

	c.Tick()
	if c.Remaining != 0 {
		t.Errorf("Expected remaining to stay at 0, got %d", c.Remaining)
	}
}

func TestFormatClock(t *testing.T) {
	tests := map[int]string{0: "00:00", 59: "00:59", 300: "05:00", 2701: "45:01", -3: "00:00"}
	for in, want := range tests {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%d): expected '%s', got '%s'", in, want, got)
		}
	}
}
