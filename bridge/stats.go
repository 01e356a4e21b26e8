package bridge

import (
	metrics "github.com/rcrowley/go-metrics"
)

// Stats are the bridge counters. Incrementing them is a single atomic add.
type Stats struct {
	Forwarded       metrics.Counter
	Emitted         metrics.Counter
	DroppedOutbound metrics.Counter
	DroppedPort     metrics.Counter
	DroppedOverflow metrics.Counter
	Unsupported     metrics.Counter
	WriteErrors     metrics.Counter
}

// NewStats registers the bridge counters in r, or in metrics.DefaultRegistry
// when r is nil.
func NewStats(r metrics.Registry) *Stats {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &Stats{
		Forwarded:       metrics.NewRegisteredCounter("bridge.forwarded", r),
		Emitted:         metrics.NewRegisteredCounter("bridge.emitted", r),
		DroppedOutbound: metrics.NewRegisteredCounter("bridge.dropped.outbound", r),
		DroppedPort:     metrics.NewRegisteredCounter("bridge.dropped.port", r),
		DroppedOverflow: metrics.NewRegisteredCounter("bridge.dropped.overflow", r),
		Unsupported:     metrics.NewRegisteredCounter("bridge.unsupported", r),
		WriteErrors:     metrics.NewRegisteredCounter("bridge.errors.write", r),
	}
}
