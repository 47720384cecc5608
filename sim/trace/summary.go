package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTransitions int
	PeakInService    int
	PeakWaiting      int
	MonotonicClock   bool           // true if Clock never decreased across records
	PerState         map[string]int // target state → number of transitions into it
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces.
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		MonotonicClock: true,
		PerState:       make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalTransitions = len(st.Transitions)
	var last int64
	for i, r := range st.Transitions {
		if i > 0 && r.Clock < last {
			summary.MonotonicClock = false
		}
		last = r.Clock
		summary.PerState[r.To]++
		summary.PeakInService = max(summary.PeakInService, r.InService)
		summary.PeakWaiting = max(summary.PeakWaiting, r.Waiting)
	}
	return summary
}
