package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Workload feeds arrivals into a simulator. Seed schedules whatever is
// known before the run starts; Arrived is called each time an arrival
// event fires, before the new job touches the pool.
type Workload interface {
	Validate() error
	Seed(sim *Simulator) error
	Arrived(sim *Simulator, index int) error
	// ServiceSource is consulted at service start for jobs whose arrival
	// carried no preset service time. May return nil.
	ServiceSource() DurationSource
	// Expected returns the number of jobs the workload will produce.
	Expected() int
}

// ScheduleEntry is one job of a fixed schedule.
type ScheduleEntry struct {
	Arrival int64 `yaml:"arrival" json:"arrival"`
	Service int64 `yaml:"service" json:"service"`
}

// FixedSchedule is a predetermined ordered list of arrivals with their
// service times. Every arrival is scheduled before the run begins.
type FixedSchedule struct {
	Entries []ScheduleEntry
}

// NewFixedSchedule pairs arrival and service times by position.
func NewFixedSchedule(arrivals, services []int64) (*FixedSchedule, error) {
	if len(arrivals) != len(services) {
		return nil, configError("schedule has %d arrivals but %d service times", len(arrivals), len(services))
	}
	entries := make([]ScheduleEntry, len(arrivals))
	for i := range arrivals {
		entries[i] = ScheduleEntry{Arrival: arrivals[i], Service: services[i]}
	}
	return &FixedSchedule{Entries: entries}, nil
}

func (f *FixedSchedule) Validate() error {
	if len(f.Entries) == 0 {
		return configError("fixed schedule is empty")
	}
	var prev int64
	for i, e := range f.Entries {
		if e.Arrival < 0 {
			return configError("schedule[%d]: arrival must be >= 0, got %d", i, e.Arrival)
		}
		if e.Service <= 0 {
			return configError("schedule[%d]: service must be > 0, got %d", i, e.Service)
		}
		if e.Arrival > math.MaxInt64-e.Service {
			return configError("schedule[%d]: departure of arrival %d + service %d overflows the tick range", i, e.Arrival, e.Service)
		}
		if e.Arrival < prev {
			return configError("schedule[%d]: arrival %d precedes previous arrival %d", i, e.Arrival, prev)
		}
		prev = e.Arrival
	}
	return nil
}

func (f *FixedSchedule) Seed(sim *Simulator) error {
	for i, e := range f.Entries {
		if err := sim.Schedule(sim.NewArrivalEvent(e.Arrival, i, e.Service)); err != nil {
			return err
		}
	}
	return nil
}

func (f *FixedSchedule) Arrived(*Simulator, int) error { return nil }

func (f *FixedSchedule) ServiceSource() DurationSource { return nil }

func (f *FixedSchedule) Expected() int { return len(f.Entries) }

// GeneratedArrivals produces Count jobs whose inter-arrival gaps come from
// Gaps. The first job arrives one gap after time zero. The gap to job i+1
// is drawn only once job i has arrived, and service times are drawn when
// service starts, so a single shared generator is consumed in event order.
type GeneratedArrivals struct {
	Count   int
	Gaps    DurationSource
	Service DurationSource
}

func (g *GeneratedArrivals) Validate() error {
	if g.Count < 0 {
		return configError("job count must be >= 0, got %d", g.Count)
	}
	if g.Count > 0 && (g.Gaps == nil || g.Service == nil) {
		return configError("generated arrivals need both a gap source and a service source")
	}
	return nil
}

func (g *GeneratedArrivals) Seed(sim *Simulator) error {
	if g.Count == 0 {
		logrus.Warnf("generated workload has zero jobs; nothing to simulate")
		return nil
	}
	return g.scheduleNext(sim, 0)
}

func (g *GeneratedArrivals) Arrived(sim *Simulator, index int) error {
	if index+1 >= g.Count {
		return nil
	}
	return g.scheduleNext(sim, index+1)
}

func (g *GeneratedArrivals) scheduleNext(sim *Simulator, index int) error {
	now := sim.Clock.Now()
	gap := g.Gaps.Next()
	if gap < 0 {
		return newSimError(ErrResourceInvariant, now, "gap source returned negative gap %d for job %d", gap, index)
	}
	if now > math.MaxInt64-gap {
		return newSimError(ErrResourceInvariant, now, "arrival of job %d after gap %d overflows the tick range", index, gap)
	}
	return sim.Schedule(sim.NewArrivalEvent(now+gap, index, 0))
}

func (g *GeneratedArrivals) ServiceSource() DurationSource { return g.Service }

func (g *GeneratedArrivals) Expected() int { return g.Count }
