package transcribe

import "math"

// Window is one time slice of a recording scheduled for transcription.
type Window struct {
	Index    int
	Start    float64 // seconds from recording start
	Duration float64 // seconds
}

// End returns the exclusive end of the window in seconds.
func (w Window) End() float64 {
	return w.Start + w.Duration
}

// Plan splits a recording of totalDuration seconds into consecutive windows
// of windowSeconds each. The final window is shortened to exactly cover the
// remainder, so the plan is lossless: windows tile [0, totalDuration) with
// no gaps and no overlap.
func Plan(totalDuration, windowSeconds float64) ([]Window, error) {
	if totalDuration <= 0 {
		return nil, ErrInvalidDuration
	}
	if windowSeconds <= 0 {
		return nil, ErrInvalidWindow
	}

	count := int(math.Ceil(totalDuration / windowSeconds))
	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * windowSeconds
		duration := windowSeconds
		if start+duration > totalDuration {
			duration = totalDuration - start
		}
		windows = append(windows, Window{Index: i, Start: start, Duration: duration})
	}
	return windows, nil
}
