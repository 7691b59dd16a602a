package codec

import "testing"

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line    string
		seconds float64
		ok      bool
	}{
		{"out_time_us=2500000", 2.5, true},
		{"out_time=00:00:05.000000", 5.0, true},
		{"out_time=01:02:03.500000", 3723.5, true},
		{"frame=100", 0, false},
		{"speed=1.5x", 0, false},
		{"progress=end", 0, false},
		{"garbage", 0, false},
		{"out_time_us=notanumber", 0, false},
		{"out_time_us=-100", 0, false},
	}
	for _, c := range cases {
		got, ok := parseProgressLine(c.line)
		if ok != c.ok {
			t.Errorf("parseProgressLine(%q) ok = %v, want %v", c.line, ok, c.ok)
			continue
		}
		if ok && got != c.seconds {
			t.Errorf("parseProgressLine(%q) = %v, want %v", c.line, got, c.seconds)
		}
	}
}

func TestProgressTrackerMonotonicAndBounded(t *testing.T) {
	tracker := newProgressTracker(10)

	lines := []string{
		"out_time_us=2000000",  // 0.2
		"out_time_us=6000000",  // 0.6
		"out_time_us=4000000",  // ffmpeg hiccup, must not move backward
		"out_time_us=15000000", // past the end, clamp to 1
	}
	want := []float64{0.2, 0.6, 0.6, 1.0}

	for i, line := range lines {
		got, ok := tracker.observe(line)
		if !ok {
			t.Fatalf("line %d not recognized", i)
		}
		if got != want[i] {
			t.Errorf("line %d: fraction = %v, want %v", i, got, want[i])
		}
	}

	if tracker.finish() != 1.0 {
		t.Error("finish() != 1.0")
	}
}

func TestParseProbeDuration(t *testing.T) {
	got, err := parseProbeDuration("10.026667\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != 10.026667 {
		t.Errorf("duration = %v", got)
	}

	if _, err := parseProbeDuration("N/A\n"); err == nil {
		t.Error("expected error for N/A duration")
	}
	if _, err := parseProbeDuration("0.0"); err == nil {
		t.Error("expected error for zero duration")
	}
}
