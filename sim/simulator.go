// sim/simulator.go
package sim

import (
	"fmt"
	"sort"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim/trace"
)

// SimConfig groups the parameters of a single run.
type SimConfig struct {
	Capacity   int              // number of servers (must be >= 1)
	TraceLevel trace.TraceLevel // "none" (default) or "transitions"
	RunID      string           // optional; generated when empty
}

// Result is the output of one run. It is owned by the caller and shares no
// state with other runs.
type Result struct {
	RunID         string `json:"run_id"`
	Capacity      int    `json:"capacity"`
	Jobs          []Job  `json:"jobs"` // completion order
	EndTime       int64  `json:"end_time"`
	PeakInService int    `json:"peak_in_service"`
	PeakWaiting   int    `json:"peak_waiting"`
	EventsRun     int    `json:"events_run"`
}

// ByIndex returns the jobs sorted by sequence index.
func (r *Result) ByIndex() []Job {
	jobs := make([]Job, len(r.Jobs))
	copy(jobs, r.Jobs)
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Index < jobs[j].Index })
	return jobs
}

// Simulator is the core object that holds virtual time, the event queue,
// the server pool and the live job processes.
type Simulator struct {
	Clock      Clock
	EventQueue *EventHeap
	Pool       *ResourcePool
	Workload   Workload
	Sink       RecordSink // optional; receives each record as the job departs
	Trace      *trace.SimulationTrace

	runID       string
	nextEventID uint64 // per-simulator counter for FIFO ordering of simultaneous events
	live        map[int]*JobProcess
	completed   []Job
	inService   int
	queued      int
	eventsRun   int
	ran         bool
}

// NewSimulator validates the configuration and workload and returns a
// simulator ready to Run. Configuration errors surface here, before any
// event executes.
func NewSimulator(cfg SimConfig, wl Workload) (*Simulator, error) {
	if wl == nil {
		return nil, configError("workload must not be nil")
	}
	if !trace.IsValidTraceLevel(string(cfg.TraceLevel)) {
		return nil, configError("unknown trace level %q; valid: none, transitions", cfg.TraceLevel)
	}
	pool, err := NewResourcePool(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	if err := wl.Validate(); err != nil {
		return nil, err
	}

	runID := cfg.RunID
	if runID == "" {
		runID = xid.New().String()
	}

	s := &Simulator{
		EventQueue: NewEventHeap(),
		Pool:       pool,
		Workload:   wl,
		runID:      runID,
		live:       make(map[int]*JobProcess),
	}
	if cfg.TraceLevel == trace.TraceLevelTransitions {
		s.Trace = trace.NewSimulationTrace(cfg.TraceLevel)
	}
	return s, nil
}

// RunID returns the identifier attached to this run's result.
func (sim *Simulator) RunID() string {
	return sim.runID
}

// newEventID generates the next event ID for this simulator
func (sim *Simulator) newEventID() uint64 {
	sim.nextEventID++
	return sim.nextEventID
}

// NewArrivalEvent creates an arrival for job index at the given tick.
// A zero service means the duration is drawn when service starts.
func (sim *Simulator) NewArrivalEvent(timestamp int64, index int, service int64) *ArrivalEvent {
	return &ArrivalEvent{baseEvent: baseEvent{time: timestamp, id: sim.newEventID()}, Index: index, Service: service}
}

// NewGrantEvent creates the resumption of a waiter that was handed a unit.
func (sim *Simulator) NewGrantEvent(timestamp int64, p *JobProcess) *GrantEvent {
	return &GrantEvent{baseEvent: baseEvent{time: timestamp, id: sim.newEventID()}, Process: p}
}

// NewDepartureEvent creates the end-of-service event for p.
func (sim *Simulator) NewDepartureEvent(timestamp int64, p *JobProcess) *DepartureEvent {
	return &DepartureEvent{baseEvent: baseEvent{time: timestamp, id: sim.newEventID()}, Process: p}
}

// Schedule pushes an event into the queue. Events due before the current
// clock are rejected, never clamped.
func (sim *Simulator) Schedule(ev Event) error {
	if ev.Timestamp() < sim.Clock.Now() {
		return newSimError(ErrCausality, sim.Clock.Now(), "cannot schedule %T for tick %d", ev, ev.Timestamp())
	}
	sim.EventQueue.Schedule(ev)
	return nil
}

// Run seeds the workload and executes events until none remain. It aborts
// on the first invariant violation.
func (sim *Simulator) Run() (*Result, error) {
	if sim.ran {
		return nil, fmt.Errorf("simulator %s has already run", sim.runID)
	}
	sim.ran = true

	logrus.Infof("Starting run %s with %d server(s), %d job(s) expected",
		sim.runID, sim.Pool.Capacity(), sim.Workload.Expected())

	if err := sim.Workload.Seed(sim); err != nil {
		return nil, err
	}

	for sim.EventQueue.Len() > 0 {
		ev := sim.EventQueue.PopNext()
		if err := sim.Clock.AdvanceTo(ev.Timestamp()); err != nil {
			return nil, err
		}
		logrus.Debugf("[tick %07d] Executing %T", sim.Clock.Now(), ev)
		if err := ev.Execute(sim); err != nil {
			return nil, err
		}
		sim.eventsRun++
	}

	if len(sim.live) > 0 {
		return nil, newSimError(ErrResourceInvariant, sim.Clock.Now(),
			"%d job(s) stalled with no pending event: %v", len(sim.live), sim.stalledIndices())
	}

	logrus.Infof("[tick %07d] Run %s ended after %d events", sim.Clock.Now(), sim.runID, sim.eventsRun)

	return &Result{
		RunID:         sim.runID,
		Capacity:      sim.Pool.Capacity(),
		Jobs:          sim.completed,
		EndTime:       sim.Clock.Now(),
		PeakInService: sim.Pool.PeakHeld,
		PeakWaiting:   sim.Pool.PeakWaiting,
		EventsRun:     sim.eventsRun,
	}, nil
}

// Event handlers

func (sim *Simulator) handleArrival(e *ArrivalEvent) error {
	if _, exists := sim.live[e.Index]; exists {
		return newSimError(ErrResourceInvariant, sim.Clock.Now(), "job %d arrived twice", e.Index)
	}
	proc := newJobProcess(e.Index, e.Service, sim.Workload.ServiceSource())
	sim.live[e.Index] = proc

	if err := sim.Workload.Arrived(sim, e.Index); err != nil {
		return err
	}
	return proc.arrive(sim)
}

// complete hands a departed job's record to the caller-visible outputs.
func (sim *Simulator) complete(p *JobProcess) error {
	delete(sim.live, p.Job.Index)
	sim.completed = append(sim.completed, p.Job)
	logrus.Debugf("Finished job %d: %s", p.Job.Index, p.Job)
	if sim.Sink != nil {
		if err := sim.Sink.Record(p.Job); err != nil {
			return fmt.Errorf("recording job %d: %w", p.Job.Index, err)
		}
	}
	return nil
}

func (sim *Simulator) recordTransition(p *JobProcess, from, to JobState) {
	switch from {
	case StateQueued:
		sim.queued--
	case StateInService:
		sim.inService--
	}
	switch to {
	case StateQueued:
		sim.queued++
	case StateInService:
		sim.inService++
	}
	if !sim.Trace.Enabled() {
		return
	}
	sim.Trace.RecordTransition(trace.TransitionRecord{
		Clock:     sim.Clock.Now(),
		Job:       p.Job.Index,
		From:      string(from),
		To:        string(to),
		InService: sim.inService,
		Waiting:   sim.queued,
	})
}

func (sim *Simulator) stalledIndices() []int {
	idx := make([]int, 0, len(sim.live))
	for i := range sim.live {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}
