package sim

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/queue-sim/sim/internal/testutil"
	"github.com/inference-sim/queue-sim/sim/trace"
)

func runFixed(t *testing.T, capacity int, arrivals, services []int64) *Result {
	t.Helper()
	wl, err := NewFixedSchedule(arrivals, services)
	require.NoError(t, err)
	s, err := NewSimulator(SimConfig{Capacity: capacity, TraceLevel: trace.TraceLevelTransitions}, wl)
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	return res
}

func newGenerated(seed int64, n int, mode StreamMode) *GeneratedArrivals {
	rng := NewPartitionedRNG(seed, mode)
	return &GeneratedArrivals{
		Count:   n,
		Gaps:    NewUniformDuration(60, 180, rng.ForSubsystem(SubsystemArrival)),
		Service: NewUniformDuration(120, 300, rng.ForSubsystem(SubsystemService)),
	}
}

func runGenerated(t *testing.T, capacity int, seed int64, n int, mode StreamMode) (*Result, *Simulator) {
	t.Helper()
	s, err := NewSimulator(SimConfig{Capacity: capacity, TraceLevel: trace.TraceLevelTransitions}, newGenerated(seed, n, mode))
	require.NoError(t, err)
	res, err := s.Run()
	require.NoError(t, err)
	return res, s
}

func avgDelay(jobs []Job) float64 {
	if len(jobs) == 0 {
		return 0
	}
	var sum int64
	for _, j := range jobs {
		sum += j.Delay
	}
	return float64(sum) / float64(len(jobs))
}

// TestSimulator_GoldenDataset verifies hand-traced delays and departures
// for fixed schedules across server counts.
func TestSimulator_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	require.NotEmpty(t, dataset.Tests)

	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			res := runFixed(t, tc.Servers, tc.Arrivals, tc.Services)
			jobs := res.ByIndex()
			require.Len(t, jobs, len(tc.Arrivals))

			for i, j := range jobs {
				assert.Equal(t, tc.Metrics.Delays[i], j.Delay, "job %d delay", i)
				assert.Equal(t, tc.Metrics.Departures[i], j.DepartureTime, "job %d departure", i)
			}
			testutil.AssertFloat64Equal(t, "avg delay", tc.Metrics.AvgDelay, avgDelay(jobs), 1e-9)
			assert.Equal(t, tc.Metrics.Span, res.EndTime)
		})
	}
}

// TestSimulator_ThreeJobs_OneServer_QueuesBehindPredecessor spells out the
// smallest contended trace.
func TestSimulator_ThreeJobs_OneServer_QueuesBehindPredecessor(t *testing.T) {
	// GIVEN arrivals 15, 47, 71 with services 43, 36, 34 on one server
	res := runFixed(t, 1, []int64{15, 47, 71}, []int64{43, 36, 34})

	// THEN job 1 starts when job 0 leaves at 58, job 2 when job 1 leaves at 94
	jobs := res.ByIndex()
	assert.Equal(t, []int64{0, 11, 23}, []int64{jobs[0].Delay, jobs[1].Delay, jobs[2].Delay})
	assert.Equal(t, []int64{58, 94, 128}, []int64{jobs[0].DepartureTime, jobs[1].DepartureTime, jobs[2].DepartureTime})
}

// TestSimulator_ThreeJobs_TwoServers_NoWaiting: job 2 arrives at 71, after
// job 0 has already left at 58, so nobody waits.
func TestSimulator_ThreeJobs_TwoServers_NoWaiting(t *testing.T) {
	res := runFixed(t, 2, []int64{15, 47, 71}, []int64{43, 36, 34})

	jobs := res.ByIndex()
	assert.Equal(t, []int64{0, 0, 0}, []int64{jobs[0].Delay, jobs[1].Delay, jobs[2].Delay})
	assert.Equal(t, []int64{58, 83, 105}, []int64{jobs[0].DepartureTime, jobs[1].DepartureTime, jobs[2].DepartureTime})
}

// TestSimulator_RecordInvariants checks, over many generated runs, that
// delay >= 0 and departure = arrival + delay + service exactly.
func TestSimulator_RecordInvariants(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 5} {
		for seed := int64(1); seed <= 5; seed++ {
			res, _ := runGenerated(t, capacity, seed, 200, StreamsShared)
			require.Len(t, res.Jobs, 200)
			for _, j := range res.Jobs {
				if j.Delay < 0 {
					t.Fatalf("c=%d seed=%d job %d: negative delay %d", capacity, seed, j.Index, j.Delay)
				}
				if j.DepartureTime != j.ArrivalTime+j.Delay+j.ServiceTime {
					t.Fatalf("c=%d seed=%d job %d: departure %d != %d+%d+%d",
						capacity, seed, j.Index, j.DepartureTime, j.ArrivalTime, j.Delay, j.ServiceTime)
				}
				if j.ServiceTime < 120 || j.ServiceTime > 300 {
					t.Fatalf("job %d: service %d outside [120, 300]", j.Index, j.ServiceTime)
				}
			}
		}
	}
}

// TestSimulator_InServiceNeverExceedsCapacity uses the transition trace to
// check occupancy at every instant.
func TestSimulator_InServiceNeverExceedsCapacity(t *testing.T) {
	for _, capacity := range []int{1, 2, 3} {
		// GIVEN a heavily loaded generated workload (services longer than gaps)
		_, s := runGenerated(t, capacity, 7, 300, StreamsShared)

		// THEN no transition record shows more than c jobs in service
		summary := trace.Summarize(s.Trace)
		assert.LessOrEqual(t, summary.PeakInService, capacity)
		assert.Equal(t, capacity, summary.PeakInService, "a loaded system should saturate every server")
		assert.Equal(t, 300, summary.PerState[string(StateDeparted)])
	}
}

// TestSimulator_FIFO_NoOvertaking: for arrival[i] < arrival[j], start[i] <= start[j].
func TestSimulator_FIFO_NoOvertaking(t *testing.T) {
	for _, capacity := range []int{1, 2, 4} {
		res, _ := runGenerated(t, capacity, 11, 250, StreamsShared)
		jobs := res.ByIndex()
		for i := 1; i < len(jobs); i++ {
			prev, cur := jobs[i-1], jobs[i]
			if prev.ArrivalTime < cur.ArrivalTime && prev.ServiceStart() > cur.ServiceStart() {
				t.Fatalf("c=%d: job %d (arr %d) started at %d after job %d (arr %d) started at %d",
					capacity, prev.Index, prev.ArrivalTime, prev.ServiceStart(), cur.Index, cur.ArrivalTime, cur.ServiceStart())
			}
		}
	}
}

// TestSimulator_SimultaneousArrivals_ServedInScheduleOrder: jobs arriving
// at the same tick reach the pool in the order they were scheduled.
func TestSimulator_SimultaneousArrivals_ServedInScheduleOrder(t *testing.T) {
	// GIVEN four jobs all arriving at tick 0 on one server
	res := runFixed(t, 1, []int64{0, 0, 0, 0}, []int64{5, 3, 7, 1})

	// THEN they are served strictly in index order
	jobs := res.ByIndex()
	assert.Equal(t, []int64{0, 5, 8, 15}, []int64{jobs[0].ServiceStart(), jobs[1].ServiceStart(), jobs[2].ServiceStart(), jobs[3].ServiceStart()})
	assert.Equal(t, 3, res.PeakWaiting)
}

// TestSimulator_Determinism_SameSeedIdenticalRecords: two independent runs
// with the same seed produce byte-identical record sequences.
func TestSimulator_Determinism_SameSeedIdenticalRecords(t *testing.T) {
	for _, mode := range []StreamMode{StreamsShared, StreamsIsolated} {
		r1, _ := runGenerated(t, 2, 123, 150, mode)
		r2, _ := runGenerated(t, 2, 123, 150, mode)

		b1, err := json.Marshal(r1.Jobs)
		require.NoError(t, err)
		b2, err := json.Marshal(r2.Jobs)
		require.NoError(t, err)
		assert.Equal(t, string(b1), string(b2), "mode %s", mode)
		assert.NotEqual(t, r1.RunID, r2.RunID, "runs get distinct IDs")
	}
}

// TestSimulator_Determinism_DifferentSeedsDiffer guards against a seed that
// is silently ignored.
func TestSimulator_Determinism_DifferentSeedsDiffer(t *testing.T) {
	r1, _ := runGenerated(t, 1, 100, 50, StreamsShared)
	r2, _ := runGenerated(t, 1, 200, 50, StreamsShared)
	b1, _ := json.Marshal(r1.ByIndex())
	b2, _ := json.Marshal(r2.ByIndex())
	assert.NotEqual(t, string(b1), string(b2))
}

// TestSimulator_MonotonicClock verifies the clock never decreases over a run.
func TestSimulator_MonotonicClock(t *testing.T) {
	_, s := runGenerated(t, 2, 5, 200, StreamsShared)
	summary := trace.Summarize(s.Trace)
	assert.True(t, summary.MonotonicClock)
	assert.Equal(t, 200*3, summary.TotalTransitions, "each job makes exactly three transitions")
}

// TestSimulator_CapacitySensitivity: for a fixed workload, adding a server
// never increases the average delay.
func TestSimulator_CapacitySensitivity(t *testing.T) {
	// GIVEN the classic fixed schedule
	prev := -1.0
	for c := 1; c <= 4; c++ {
		res := runFixed(t, c, testutil.ClassicArrivals, testutil.ClassicServices)
		d := avgDelay(res.Jobs)
		if prev >= 0 && d > prev {
			t.Errorf("avg delay with %d servers = %.2f > %.2f with %d", c, d, prev, c-1)
		}
		prev = d
	}

	// AND a generated workload with isolated streams, so arrivals and
	// service times do not depend on the server count
	for seed := int64(1); seed <= 5; seed++ {
		prev = -1.0
		for c := 1; c <= 4; c++ {
			res, _ := runGenerated(t, c, seed, 200, StreamsIsolated)
			d := avgDelay(res.Jobs)
			if prev >= 0 && d > prev {
				t.Errorf("seed %d: avg delay with %d servers = %.2f > %.2f with %d", seed, c, d, prev, c-1)
			}
			prev = d
		}
	}
}

// TestSimulator_IsolatedStreams_ArrivalsIndependentOfCapacity verifies the
// point of isolated streams: the same arrival sequence for every c.
func TestSimulator_IsolatedStreams_ArrivalsIndependentOfCapacity(t *testing.T) {
	r1, _ := runGenerated(t, 1, 9, 100, StreamsIsolated)
	r3, _ := runGenerated(t, 3, 9, 100, StreamsIsolated)
	j1, j3 := r1.ByIndex(), r3.ByIndex()
	for i := range j1 {
		require.Equal(t, j1[i].ArrivalTime, j3[i].ArrivalTime, "job %d arrival", i)
		require.Equal(t, j1[i].ServiceTime, j3[i].ServiceTime, "job %d service", i)
	}
}

// drawLog records the order in which a shared random source is consumed.
type drawLog struct {
	log   *[]string
	name  string
	value int64
}

func (d *drawLog) Next() int64 {
	*d.log = append(*d.log, d.name)
	return d.value
}

// TestGeneratedArrivals_DrawOrder verifies gaps are drawn lazily on arrival
// and service times at service start.
func TestGeneratedArrivals_DrawOrder(t *testing.T) {
	// GIVEN three jobs with gap 100 and service 10 (no contention)
	var log []string
	wl := &GeneratedArrivals{
		Count:   3,
		Gaps:    &drawLog{log: &log, name: "gap", value: 100},
		Service: &drawLog{log: &log, name: "service", value: 10},
	}
	s, err := NewSimulator(SimConfig{Capacity: 1}, wl)
	require.NoError(t, err)

	// WHEN run
	res, err := s.Run()
	require.NoError(t, err)

	// THEN the first arrival is one gap after zero and draws interleave in event order
	assert.Equal(t, []string{"gap", "gap", "service", "gap", "service", "service"}, log)
	jobs := res.ByIndex()
	assert.Equal(t, []int64{100, 200, 300}, []int64{jobs[0].ArrivalTime, jobs[1].ArrivalTime, jobs[2].ArrivalTime})
	assert.Equal(t, int64(310), res.EndTime)
}

// TestGeneratedArrivals_ServiceDrawnAtServiceStart: a queued job draws its
// service only when granted, after jobs that arrived later have drawn gaps.
func TestGeneratedArrivals_ServiceDrawnAtServiceStart(t *testing.T) {
	var log []string
	wl := &GeneratedArrivals{
		Count:   2,
		Gaps:    &drawLog{log: &log, name: "gap", value: 1},
		Service: &drawLog{log: &log, name: "service", value: 50},
	}
	s, err := NewSimulator(SimConfig{Capacity: 1}, wl)
	require.NoError(t, err)
	_, err = s.Run()
	require.NoError(t, err)

	// job 0 arrives at 1 (gap, gap, service); job 1 arrives at 2 and waits until 51
	assert.Equal(t, []string{"gap", "gap", "service", "service"}, log)
}

func TestGeneratedArrivals_ZeroJobs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	wl := &GeneratedArrivals{Count: 0, Gaps: NewUniformDuration(1, 2, rng), Service: NewUniformDuration(1, 2, rng)}
	s, err := NewSimulator(SimConfig{Capacity: 1}, wl)
	require.NoError(t, err)

	res, err := s.Run()

	require.NoError(t, err)
	assert.Empty(t, res.Jobs)
	assert.Equal(t, int64(0), res.EndTime)
}

func TestNewSimulator_ConfigErrors(t *testing.T) {
	valid := &FixedSchedule{Entries: []ScheduleEntry{{Arrival: 0, Service: 1}}}
	tests := []struct {
		name string
		cfg  SimConfig
		wl   Workload
	}{
		{"zero capacity", SimConfig{Capacity: 0}, valid},
		{"negative capacity", SimConfig{Capacity: -1}, valid},
		{"nil workload", SimConfig{Capacity: 1}, nil},
		{"empty schedule", SimConfig{Capacity: 1}, &FixedSchedule{}},
		{"negative arrival", SimConfig{Capacity: 1}, &FixedSchedule{Entries: []ScheduleEntry{{Arrival: -1, Service: 1}}}},
		{"zero service", SimConfig{Capacity: 1}, &FixedSchedule{Entries: []ScheduleEntry{{Arrival: 0, Service: 0}}}},
		{"unsorted schedule", SimConfig{Capacity: 1}, &FixedSchedule{Entries: []ScheduleEntry{{Arrival: 5, Service: 1}, {Arrival: 4, Service: 1}}}},
		{"generated without sources", SimConfig{Capacity: 1}, &GeneratedArrivals{Count: 3}},
		{"negative job count", SimConfig{Capacity: 1}, &GeneratedArrivals{Count: -1}},
		{"bad trace level", SimConfig{Capacity: 1, TraceLevel: "verbose"}, valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulator(tt.cfg, tt.wl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig), "got %v", err)
		})
	}
}

func TestNewFixedSchedule_LengthMismatch(t *testing.T) {
	_, err := NewFixedSchedule([]int64{1, 2}, []int64{1})
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestSimulator_Schedule_InThePast_IsCausalityError(t *testing.T) {
	// GIVEN a simulator whose clock is at 100
	s := newTestSimulator(t, 1)
	_ = s.Clock.AdvanceTo(100)

	// WHEN an event is scheduled for tick 99
	err := s.Schedule(s.NewArrivalEvent(99, 0, 1))

	// THEN it fails loudly rather than clamping
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCausality))
	assert.Contains(t, err.Error(), "tick 100")
	assert.Equal(t, 0, s.EventQueue.Len())
}

// pastWorkload schedules its second arrival before the current clock.
type pastWorkload struct{ FixedSchedule }

func (p *pastWorkload) Seed(sim *Simulator) error {
	return sim.Schedule(sim.NewArrivalEvent(10, 0, 5))
}

func (p *pastWorkload) Arrived(sim *Simulator, index int) error {
	if index == 0 {
		return sim.Schedule(sim.NewArrivalEvent(sim.Clock.Now()-1, 1, 5))
	}
	return nil
}

func TestSimulator_Run_AbortsOnCausalityError(t *testing.T) {
	wl := &pastWorkload{FixedSchedule{Entries: []ScheduleEntry{{Arrival: 10, Service: 5}}}}
	s, err := NewSimulator(SimConfig{Capacity: 1}, wl)
	require.NoError(t, err)

	_, err = s.Run()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCausality))
}

func TestSimulator_Run_DetectsStalledJob(t *testing.T) {
	// GIVEN a live process that no event will ever resume
	s := newTestSimulator(t, 1)
	s.live[99] = newJobProcess(99, 1, nil)

	// WHEN the loop drains
	_, err := s.Run()

	// THEN the stall is reported instead of a silent success
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceInvariant))
	assert.Contains(t, err.Error(), "stalled")
}

func TestSimulator_Run_Twice_Fails(t *testing.T) {
	s := newTestSimulator(t, 1)
	_, err := s.Run()
	require.NoError(t, err)
	_, err = s.Run()
	assert.Error(t, err)
}

func TestSimulator_NonPositiveServiceDraw_Aborts(t *testing.T) {
	wl := &GeneratedArrivals{Count: 1, Gaps: ConstantDuration(1), Service: ConstantDuration(0)}
	s, err := NewSimulator(SimConfig{Capacity: 1}, wl)
	require.NoError(t, err)

	_, err = s.Run()

	assert.True(t, errors.Is(err, ErrResourceInvariant), "got %v", err)
}

func TestSimulator_NegativeGapDraw_Aborts(t *testing.T) {
	wl := &GeneratedArrivals{Count: 2, Gaps: newSequenceDuration(5, -3), Service: ConstantDuration(1)}
	s, err := NewSimulator(SimConfig{Capacity: 1}, wl)
	require.NoError(t, err)

	_, err = s.Run()

	assert.True(t, errors.Is(err, ErrResourceInvariant), "got %v", err)
}

func TestSimulator_ResultsAreIndependentAcrossRuns(t *testing.T) {
	r1 := runFixed(t, 1, testutil.ClassicArrivals, testutil.ClassicServices)
	r2 := runFixed(t, 2, testutil.ClassicArrivals, testutil.ClassicServices)

	// Mutating one run's output must not affect the other
	r1.Jobs[0].Delay = 999
	assert.Equal(t, int64(0), r2.ByIndex()[0].Delay)
	assert.Equal(t, 1, r1.Capacity)
	assert.Equal(t, 2, r2.Capacity)
}
