// Defines the Job record and the JobProcess state machine that drives one
// job from arrival to departure.

package sim

import (
	"fmt"
	"math"
)

// JobState represents the lifecycle state of a job.
type JobState string

const (
	StatePendingArrival JobState = "pending_arrival"
	StateQueued         JobState = "queued"
	StateInService      JobState = "in_service"
	StateDeparted       JobState = "departed"
)

// Job is the timing record of a single job. Fields are filled in as the job
// moves through its lifecycle and never change once DepartureTime is set.
type Job struct {
	Index         int   `json:"index"`
	ArrivalTime   int64 `json:"arrival_time"`
	Delay         int64 `json:"delay"`
	ServiceTime   int64 `json:"service_time"`
	DepartureTime int64 `json:"departure_time"`
}

// ServiceStart returns the tick at which the job was granted a server.
func (j Job) ServiceStart() int64 {
	return j.ArrivalTime + j.Delay
}

// Sojourn returns the total time spent in the system (delay + service).
func (j Job) Sojourn() int64 {
	return j.Delay + j.ServiceTime
}

func (j Job) String() string {
	return fmt.Sprintf("Job: (Index: %d, Arrival: %d, Delay: %d, Service: %d, Departure: %d)",
		j.Index, j.ArrivalTime, j.Delay, j.ServiceTime, j.DepartureTime)
}

// JobProcess owns a Job until it departs. It suspends at exactly three
// points: awaiting its arrival event, awaiting a server unit, and awaiting
// the end of its service. Each transition runs to the next suspension point
// without interleaving with other processes.
type JobProcess struct {
	Job   Job
	State JobState

	service DurationSource // drawn at service start when Job.ServiceTime is unset
}

func newJobProcess(index int, presetService int64, service DurationSource) *JobProcess {
	return &JobProcess{
		Job:     Job{Index: index, ServiceTime: presetService},
		State:   StatePendingArrival,
		service: service,
	}
}

// transition moves the process from one state to the next, refusing any
// skipped or repeated step.
func (p *JobProcess) transition(sim *Simulator, from, to JobState) error {
	if p.State != from {
		return newSimError(ErrResourceInvariant, sim.Clock.Now(),
			"job %d cannot move %s -> %s from state %s", p.Job.Index, from, to, p.State)
	}
	p.State = to
	sim.recordTransition(p, from, to)
	return nil
}

// arrive records the arrival and asks the pool for a unit. When the pool
// grants one immediately, service starts in the same step.
func (p *JobProcess) arrive(sim *Simulator) error {
	p.Job.ArrivalTime = sim.Clock.Now()
	if err := p.transition(sim, StatePendingArrival, StateQueued); err != nil {
		return err
	}
	if sim.Pool.Request(p) {
		return p.startService(sim)
	}
	return nil
}

// startService records the delay, fixes the service duration and schedules
// the departure.
func (p *JobProcess) startService(sim *Simulator) error {
	now := sim.Clock.Now()
	if err := p.transition(sim, StateQueued, StateInService); err != nil {
		return err
	}
	p.Job.Delay = now - p.Job.ArrivalTime

	if p.Job.ServiceTime == 0 {
		if p.service == nil {
			return newSimError(ErrConfig, now, "job %d has no service time and no service source", p.Job.Index)
		}
		p.Job.ServiceTime = p.service.Next()
	}
	if p.Job.ServiceTime <= 0 {
		return newSimError(ErrResourceInvariant, now, "job %d drew non-positive service time %d", p.Job.Index, p.Job.ServiceTime)
	}
	if now > math.MaxInt64-p.Job.ServiceTime {
		return newSimError(ErrResourceInvariant, now, "departure of job %d after service %d overflows the tick range", p.Job.Index, p.Job.ServiceTime)
	}

	return sim.Schedule(sim.NewDepartureEvent(now+p.Job.ServiceTime, p))
}

// depart records the departure, frees the unit and emits the record.
func (p *JobProcess) depart(sim *Simulator) error {
	if err := p.transition(sim, StateInService, StateDeparted); err != nil {
		return err
	}
	p.Job.DepartureTime = sim.Clock.Now()
	if err := sim.Pool.Release(sim); err != nil {
		return err
	}
	return sim.complete(p)
}
