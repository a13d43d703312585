package bench

import (
	"fmt"
	"io"
	"time"
)

// Report is the outcome of a benchmark run.
type Report struct {
	RunID string

	SerializationLoops     int
	SerializationElapsed   time.Duration
	DeserializationLoops   int
	DeserializationElapsed time.Duration

	// EncodedBytes is the size of one saved network; PayloadBytes is its
	// size after the configured compression.
	EncodedBytes int
	PayloadBytes int
	Compression  string
	// Digest is the hex BLAKE3-256 of the encoded network.
	Digest string
}

// WriteTo prints the four-line timing summary.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, phase := range []struct {
		name    string
		loops   int
		elapsed time.Duration
	}{
		{"Serialization", r.SerializationLoops, r.SerializationElapsed},
		{"Deserialization", r.DeserializationLoops, r.DeserializationElapsed},
	} {
		secs := phase.elapsed.Seconds()
		perLoop := 0.0
		if phase.loops > 0 {
			perLoop = secs / float64(phase.loops)
		}
		n, err := fmt.Fprintf(w, "%d %s loops in %s seconds.\n\t%s seconds per loop.\n",
			phase.loops, phase.name, formatSeconds(secs), formatSeconds(perLoop))
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// formatSeconds renders with twelve significant digits.
func formatSeconds(s float64) string {
	return fmt.Sprintf("%.12g", s)
}
