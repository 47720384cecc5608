package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event has a Timestamp (in ticks), a per-simulator EventID used to
// break ties between simultaneous events, and an Execute method that
// resumes the suspended job process it belongs to.
type Event interface {
	Timestamp() int64
	EventID() uint64
	Execute(*Simulator) error
}

// baseEvent provides the common event fields.
type baseEvent struct {
	time int64
	id   uint64
}

func (e *baseEvent) Timestamp() int64 {
	return e.time
}

func (e *baseEvent) EventID() uint64 {
	return e.id
}

// ArrivalEvent brings a new job into the system.
type ArrivalEvent struct {
	baseEvent
	Index   int   // sequence index of the arriving job
	Service int64 // preset service time; 0 means draw at service start
}

// Execute spawns the job process and lets the workload schedule the next arrival.
func (e *ArrivalEvent) Execute(sim *Simulator) error {
	logrus.Debugf("<< Arrival: job %d at %d ticks", e.Index, e.time)
	return sim.handleArrival(e)
}

// GrantEvent resumes a job that was waiting in the pool's FIFO queue and
// has just been handed a server unit by a release.
type GrantEvent struct {
	baseEvent
	Process *JobProcess
}

// Execute starts service for the granted job.
func (e *GrantEvent) Execute(sim *Simulator) error {
	logrus.Debugf("<< Grant: job %d at %d ticks", e.Process.Job.Index, e.time)
	return e.Process.startService(sim)
}

// DepartureEvent fires when a job's service duration has elapsed.
type DepartureEvent struct {
	baseEvent
	Process *JobProcess
}

// Execute completes the job and releases its server unit.
func (e *DepartureEvent) Execute(sim *Simulator) error {
	logrus.Debugf("<< Departure: job %d at %d ticks", e.Process.Job.Index, e.time)
	return e.Process.depart(sim)
}
