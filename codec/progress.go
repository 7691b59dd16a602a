package codec

import (
	"strconv"
	"strings"
)

// progressTracker turns ffmpeg -progress key=value lines into fractions of
// the input duration. Emitted fractions are clamped to [0,1] and never move
// backward, whatever ffmpeg reports.
type progressTracker struct {
	totalSeconds float64
	last         float64
}

func newProgressTracker(totalSeconds float64) *progressTracker {
	return &progressTracker{totalSeconds: totalSeconds}
}

func (t *progressTracker) observe(line string) (float64, bool) {
	seconds, ok := parseProgressLine(line)
	if !ok {
		return 0, false
	}

	fraction := seconds / t.totalSeconds
	if fraction < t.last {
		fraction = t.last
	}
	if fraction > 1 {
		fraction = 1
	}
	t.last = fraction
	return fraction, true
}

// finish reports full progress once the stream is committed.
func (t *progressTracker) finish() float64 {
	t.last = 1
	return 1
}

// parseProgressLine extracts elapsed output seconds from an ffmpeg progress
// line. Only out_time_us (microseconds) and out_time (HH:MM:SS.micro) carry
// timing; every other key is ignored.
func parseProgressLine(line string) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}

	switch key {
	case "out_time_us":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		return float64(us) / 1e6, true
	case "out_time":
		return parseClock(value)
	default:
		return 0, false
	}
}

func parseClock(value string) (float64, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	total := hours*3600 + minutes*60 + seconds
	if total < 0 {
		return 0, false
	}
	return total, true
}
