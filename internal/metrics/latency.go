// Package metrics wraps the HDR histogram used to track warehouse write
// latencies during the load stage.
package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latency records durations between 1ns and 10s at 3 significant figures.
// Values outside the range are clamped rather than dropped.
type Latency struct {
	hist *hdrhistogram.Histogram
}

const maxTrackable = int64(10 * time.Second)

func NewLatency() *Latency {
	return &Latency{hist: hdrhistogram.New(1, maxTrackable, 3)}
}

func (l *Latency) Observe(d time.Duration) {
	v := int64(d)
	if v < 1 {
		v = 1
	}
	if v > maxTrackable {
		v = maxTrackable
	}
	// RecordValue only fails outside the configured range, which the clamp
	// above rules out.
	_ = l.hist.RecordValue(v)
}

// Percentile returns the latency at quantile q in (0, 100].
func (l *Latency) Percentile(q float64) time.Duration {
	return time.Duration(l.hist.ValueAtQuantile(q))
}

func (l *Latency) Count() int64 {
	return l.hist.TotalCount()
}
