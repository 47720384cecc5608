package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/metrics"
	"github.com/inference-sim/queue-sim/sim/trace"
)

// Report is the JSON document printed for one run.
type Report struct {
	RunID         string              `json:"run_id"`
	Servers       int                 `json:"servers"`
	EventsRun     int                 `json:"events_run"`
	PeakInService int                 `json:"peak_in_service"`
	PeakWaiting   int                 `json:"peak_waiting"`
	Summary       *metrics.Summary    `json:"summary"`
	Trace         *trace.TraceSummary `json:"trace,omitempty"`
	Jobs          []sim.Job           `json:"jobs,omitempty"`
}

// NewReport assembles a report from a finished run. Jobs are listed by
// index when withJobs is set.
func NewReport(result *sim.Result, summary *metrics.Summary, st *trace.SimulationTrace, withJobs bool) *Report {
	r := &Report{
		RunID:         result.RunID,
		Servers:       result.Capacity,
		EventsRun:     result.EventsRun,
		PeakInService: result.PeakInService,
		PeakWaiting:   result.PeakWaiting,
		Summary:       summary,
	}
	if st.Enabled() {
		r.Trace = trace.Summarize(st)
	}
	if withJobs {
		r.Jobs = result.ByIndex()
	}
	return r
}

// PrintReports writes every report as indented JSON under a header.
func PrintReports(w io.Writer, reports []*Report) error {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling reports: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
