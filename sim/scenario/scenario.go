// Package scenario loads and validates YAML scenario files and turns them
// into runnable simulators.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/trace"
)

// Scenario is the top-level scenario configuration.
// Exactly one of Schedule (fixed mode) or Generated must be set.
type Scenario struct {
	Version   string              `yaml:"version"`
	Seed      int64               `yaml:"seed"`
	Servers   []int               `yaml:"servers"`
	Streams   string              `yaml:"streams,omitempty"` // "shared" (default) or "isolated"
	Trace     string              `yaml:"trace,omitempty"`
	Schedule  []sim.ScheduleEntry `yaml:"schedule,omitempty"`
	Generated *GeneratedSpec      `yaml:"generated,omitempty"`
}

// GeneratedSpec configures generated inter-arrivals.
type GeneratedSpec struct {
	Jobs       int          `yaml:"jobs"`
	ArrivalGap sim.DistSpec `yaml:"arrival_gap"`
	Service    sim.DistSpec `yaml:"service"`
}

// Load reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logrus.Debugf("Loaded scenario %s: servers %v", path, sc.Servers)
	return sc, nil
}

// Parse decodes a scenario from YAML bytes and validates it.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if sc.Version == "" {
		sc.Version = "1"
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that all fields in the scenario are valid.
func (s *Scenario) Validate() error {
	if s.Version != "1" {
		return fmt.Errorf("%w: unsupported scenario version %q", sim.ErrConfig, s.Version)
	}
	if len(s.Servers) == 0 {
		return fmt.Errorf("%w: at least one server count required", sim.ErrConfig)
	}
	for i, c := range s.Servers {
		if c < 1 {
			return fmt.Errorf("%w: servers[%d] must be >= 1, got %d", sim.ErrConfig, i, c)
		}
	}
	if _, err := sim.ParseStreamMode(s.Streams); err != nil {
		return fmt.Errorf("%w: %v", sim.ErrConfig, err)
	}
	if !trace.IsValidTraceLevel(s.Trace) {
		return fmt.Errorf("%w: unknown trace level %q; valid: none, transitions", sim.ErrConfig, s.Trace)
	}

	switch {
	case len(s.Schedule) > 0 && s.Generated != nil:
		return fmt.Errorf("%w: schedule and generated are mutually exclusive", sim.ErrConfig)
	case len(s.Schedule) > 0:
		return (&sim.FixedSchedule{Entries: s.Schedule}).Validate()
	case s.Generated != nil:
		return s.Generated.Validate()
	}
	return fmt.Errorf("%w: scenario needs either a schedule or a generated section", sim.ErrConfig)
}

// Validate checks the generated-arrivals section.
func (g *GeneratedSpec) Validate() error {
	if g.Jobs < 0 {
		return fmt.Errorf("%w: generated.jobs must be >= 0, got %d", sim.ErrConfig, g.Jobs)
	}
	// Scenario gaps are at least one tick. The engine itself accepts zero
	// gaps from a programmatic DurationSource.
	if err := g.ArrivalGap.Validate("generated.arrival_gap", 1); err != nil {
		return err
	}
	return g.Service.Validate("generated.service", 1)
}

// Workload validates the scenario and builds a fresh workload for one run.
// Each call draws from its own PartitionedRNG seeded with the scenario seed,
// so runs are independent and reproducible.
func (s *Scenario) Workload() (sim.Workload, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(s.Schedule) > 0 {
		entries := make([]sim.ScheduleEntry, len(s.Schedule))
		copy(entries, s.Schedule)
		return &sim.FixedSchedule{Entries: entries}, nil
	}

	mode, _ := sim.ParseStreamMode(s.Streams)
	rng := sim.NewPartitionedRNG(s.Seed, mode)
	return &sim.GeneratedArrivals{
		Count:   s.Generated.Jobs,
		Gaps:    sim.NewDurationSource(s.Generated.ArrivalGap, rng.ForSubsystem(sim.SubsystemArrival)),
		Service: sim.NewDurationSource(s.Generated.Service, rng.ForSubsystem(sim.SubsystemService)),
	}, nil
}

// NewSimulator builds a simulator for the given server count.
func (s *Scenario) NewSimulator(servers int) (*sim.Simulator, error) {
	wl, err := s.Workload()
	if err != nil {
		return nil, err
	}
	return sim.NewSimulator(sim.SimConfig{
		Capacity:   servers,
		TraceLevel: trace.TraceLevel(s.Trace),
	}, wl)
}
