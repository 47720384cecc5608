// Package metrics aggregates completed job records into run-level statistics.
// It consumes the engine's output and never feeds back into a run.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/inference-sim/queue-sim/sim"
)

// Distribution captures statistical summary of a metric.
type Distribution struct {
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// NewDistribution computes a Distribution from raw values.
// Returns zero-value Distribution for empty input.
func NewDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return Distribution{
		Mean:  stat.Mean(sorted, nil),
		P50:   stat.Quantile(0.50, stat.LinInterp, sorted, nil),
		P95:   stat.Quantile(0.95, stat.LinInterp, sorted, nil),
		P99:   stat.Quantile(0.99, stat.LinInterp, sorted, nil),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Count: len(sorted),
	}
}

// Summary holds the aggregates of one run.
type Summary struct {
	Capacity    int          `json:"capacity"`
	Jobs        int          `json:"jobs"`
	AvgDelay    float64      `json:"avg_delay"`
	AvgService  float64      `json:"avg_service"`
	AvgSojourn  float64      `json:"avg_sojourn"` // delay + service
	Span        int64        `json:"span"`        // latest departure
	DelayedJobs int          `json:"delayed_jobs"`
	Utilization float64      `json:"utilization"` // busy server-ticks / (capacity × span)
	Delay       Distribution `json:"delay"`
	Sojourn     Distribution `json:"sojourn"`
}

// Summarize computes aggregates over jobs run on capacity servers.
// Safe for an empty slice (returns zero-value fields).
func Summarize(jobs []sim.Job, capacity int) *Summary {
	s := &Summary{Capacity: capacity, Jobs: len(jobs)}
	if len(jobs) == 0 {
		return s
	}

	delays := make([]float64, len(jobs))
	services := make([]float64, len(jobs))
	sojourns := make([]float64, len(jobs))
	var busy int64
	for i, j := range jobs {
		delays[i] = float64(j.Delay)
		services[i] = float64(j.ServiceTime)
		sojourns[i] = float64(j.Sojourn())
		busy += j.ServiceTime
		s.Span = max(s.Span, j.DepartureTime)
		if j.Delay > 0 {
			s.DelayedJobs++
		}
	}

	s.AvgDelay = stat.Mean(delays, nil)
	s.AvgService = stat.Mean(services, nil)
	s.AvgSojourn = s.AvgDelay + s.AvgService
	s.Delay = NewDistribution(delays)
	s.Sojourn = NewDistribution(sojourns)
	if s.Span > 0 && capacity > 0 {
		s.Utilization = float64(busy) / (float64(capacity) * float64(s.Span))
	}
	return s
}

// Collector is a RecordSink that keeps every record it receives.
type Collector struct {
	capacity int
	jobs     []sim.Job
}

// NewCollector creates a collector for a pool of the given capacity.
func NewCollector(capacity int) *Collector {
	return &Collector{capacity: capacity}
}

// Record implements sim.RecordSink.
func (c *Collector) Record(job sim.Job) error {
	c.jobs = append(c.jobs, job)
	return nil
}

// Jobs returns the collected records in the order they were received.
func (c *Collector) Jobs() []sim.Job {
	return c.jobs
}

// Summary aggregates everything recorded so far.
func (c *Collector) Summary() *Summary {
	return Summarize(c.jobs, c.capacity)
}
