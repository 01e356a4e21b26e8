package bridge

import (
	"context"
	"sort"
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"
)

// DefaultStatsInterval is how often the Monitor reports by default.
const DefaultStatsInterval = 10 * time.Second

// Monitor periodically logs how much every counter in a registry moved. It
// is how the realtime side gets its failures logged.
type Monitor struct {
	registry metrics.Registry
	interval time.Duration
	logger   zerolog.Logger
	last     map[string]int64
}

// NewMonitor creates a Monitor over r, or metrics.DefaultRegistry when r is
// nil. An interval of zero or less disables periodic reports.
func NewMonitor(r metrics.Registry, interval time.Duration, logger zerolog.Logger) *Monitor {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &Monitor{
		registry: r,
		interval: interval,
		logger:   logger,
		last:     make(map[string]int64),
	}
}

// Run reports every interval until ctx is done, then reports once more.
func (m *Monitor) Run(ctx context.Context) error {
	if m.interval <= 0 {
		<-ctx.Done()
		m.Report()
		return nil
	}

	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Report()
			return nil
		case <-t.C:
			m.Report()
		}
	}
}

// Report logs and returns the non-zero counter changes since the previous
// call. Drops and errors are logged at warn level.
func (m *Monitor) Report() map[string]int64 {
	deltas := make(map[string]int64)
	m.registry.Each(func(name string, i interface{}) {
		c, ok := i.(interface{ Count() int64 })
		if !ok {
			return
		}
		n := c.Count()
		if d := n - m.last[name]; d != 0 {
			deltas[name] = d
		}
		m.last[name] = n
	})
	if len(deltas) == 0 {
		return deltas
	}

	names := make([]string, 0, len(deltas))
	warn := false
	for name := range deltas {
		names = append(names, name)
		if strings.Contains(name, ".dropped") || strings.Contains(name, ".errors") {
			warn = true
		}
	}
	sort.Strings(names)

	ev := m.logger.Info()
	if warn {
		ev = m.logger.Warn()
	}
	for _, name := range names {
		ev = ev.Int64(name, deltas[name])
	}
	ev.Msg("stats")
	return deltas
}
