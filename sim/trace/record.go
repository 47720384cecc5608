// Package trace provides lifecycle-trace recording for queue simulations.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// TransitionRecord captures one job state change and the system occupancy
// right after it.
type TransitionRecord struct {
	Clock     int64
	Job       int
	From      string
	To        string
	InService int // jobs in service after the transition
	Waiting   int // jobs queued after the transition
}
