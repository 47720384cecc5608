package scenario

import "github.com/inference-sim/queue-sim/sim"

// Default generated workload: 100 jobs, gaps uniform in [60, 180], service
// uniform in [120, 300].
const (
	DefaultJobs       = 100
	DefaultGapMin     = 60
	DefaultGapMax     = 180
	DefaultServiceMin = 120
	DefaultServiceMax = 300
	DefaultSeed       = 42
)

// ClassicSchedule returns the ten-job fixed scenario on one server.
func ClassicSchedule() *Scenario {
	arrivals := []int64{15, 47, 71, 111, 123, 142, 166, 266, 310, 320}
	services := []int64{43, 36, 34, 30, 38, 40, 31, 29, 36, 30}
	entries := make([]sim.ScheduleEntry, len(arrivals))
	for i := range arrivals {
		entries[i] = sim.ScheduleEntry{Arrival: arrivals[i], Service: services[i]}
	}
	return &Scenario{Version: "1", Seed: DefaultSeed, Servers: []int{1}, Schedule: entries}
}

// DefaultGenerated returns the default generated scenario on one server.
func DefaultGenerated() *Scenario {
	return &Scenario{
		Version: "1",
		Seed:    DefaultSeed,
		Servers: []int{1},
		Generated: &GeneratedSpec{
			Jobs:       DefaultJobs,
			ArrivalGap: sim.DistSpec{Type: sim.DistUniform, Min: DefaultGapMin, Max: DefaultGapMax},
			Service:    sim.DistSpec{Type: sim.DistUniform, Min: DefaultServiceMin, Max: DefaultServiceMax},
		},
	}
}
