package checker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Stats is a snapshot of the checker counters.
type Stats struct {
	Checks       map[string]int64 // requests by outcome
	Spawns       int64
	FailedSpawns int64
}

// ReadStats collects the checker counters from reader, which must be
// registered with the provider passed in Config.MeterProvider.
func ReadStats(ctx context.Context, reader sdkmetric.Reader) (Stats, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return Stats{}, fmt.Errorf("collect checker metrics: %w", err)
	}
	st := Stats{Checks: make(map[string]int64)}
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != meterName {
			continue
		}
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch m.Name {
				case MetricCheckTotal:
					outcome, _ := dp.Attributes.Value("outcome")
					st.Checks[outcome.AsString()] += dp.Value
				case MetricSpawnTotal:
					st.Spawns += dp.Value
					if success, _ := dp.Attributes.Value("success"); !success.AsBool() {
						st.FailedSpawns += dp.Value
					}
				}
			}
		}
	}
	return st, nil
}

// String renders a one-line summary, e.g.
// "checker: 12 checks (correct 10, unknown 2), 1 process start".
func (s Stats) String() string {
	var total int64
	outcomes := make([]string, 0, len(s.Checks))
	for outcome, n := range s.Checks {
		total += n
		outcomes = append(outcomes, outcome)
	}
	slices.Sort(outcomes)

	var b strings.Builder
	fmt.Fprintf(&b, "checker: %d %s", total, plural(total, "check", "checks"))
	if len(outcomes) > 0 {
		parts := make([]string, len(outcomes))
		for i, o := range outcomes {
			parts[i] = fmt.Sprintf("%s %d", o, s.Checks[o])
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, ", %d %s", s.Spawns, plural(s.Spawns, "process start", "process starts"))
	if s.FailedSpawns > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.FailedSpawns)
	}
	return b.String()
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
