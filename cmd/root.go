package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/metrics"
	"github.com/inference-sim/queue-sim/sim/scenario"
	"github.com/inference-sim/queue-sim/sim/store"
)

var (
	// CLI flags for scenario selection
	scenarioPath string // YAML scenario file; overrides the built-in defaults
	fixed        bool   // Use the built-in ten-job fixed schedule
	seed         int64  // Seed for gap and service draws
	streams      string // Random stream mode: shared or isolated
	logLevel     string // Log verbosity level

	// CLI flags for generated workloads
	numJobs    int   // Number of generated jobs
	gapMin     int64 // Min inter-arrival gap (ticks, inclusive)
	gapMax     int64 // Max inter-arrival gap (ticks, inclusive)
	serviceMin int64 // Min service time (ticks, inclusive)
	serviceMax int64 // Max service time (ticks, inclusive)

	// CLI flags for the server pool and outputs
	servers     int    // Server count for `run`
	serverSweep []int  // Server counts for `compare`
	traceLevel  string // Lifecycle trace level
	dbPath      string // SQLite output path; empty disables persistence
	showJobs    bool   // Include per-job records in the report
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "queue-sim",
	Short: "Discrete-event simulator for FIFO multi-server queues",
}

// runCmd executes one simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the queue simulation for one server count",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc := buildScenario(cmd)
		if cmd.Flags().Changed("servers") || scenarioPath == "" {
			sc.Servers = []int{servers}
		}
		runScenario(sc, sc.Servers[:1])
	},
}

// compareCmd runs the same workload across several server counts
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the same workload for several server counts",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		sc := buildScenario(cmd)
		if cmd.Flags().Changed("servers") || scenarioPath == "" {
			sc.Servers = serverSweep
		}
		runScenario(sc, sc.Servers)
	},
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// buildScenario loads the scenario file, or assembles one from flags.
// Explicitly set flags override values from the file.
func buildScenario(cmd *cobra.Command) *scenario.Scenario {
	var sc *scenario.Scenario
	switch {
	case scenarioPath != "":
		loaded, err := scenario.Load(scenarioPath)
		if err != nil {
			fatalf("Failed to load scenario %s: %v", scenarioPath, err)
		}
		sc = loaded
	case fixed:
		sc = scenario.ClassicSchedule()
	default:
		sc = scenario.DefaultGenerated()
		sc.Generated.Jobs = numJobs
		sc.Generated.ArrivalGap = sim.DistSpec{Type: sim.DistUniform, Min: gapMin, Max: gapMax}
		sc.Generated.Service = sim.DistSpec{Type: sim.DistUniform, Min: serviceMin, Max: serviceMax}
	}

	if scenarioPath == "" || cmd.Flags().Changed("seed") {
		sc.Seed = seed
	}
	if scenarioPath == "" || cmd.Flags().Changed("streams") {
		sc.Streams = streams
	}
	if scenarioPath == "" || cmd.Flags().Changed("trace") {
		sc.Trace = traceLevel
	}
	return sc
}

// runScenario runs sc once per server count and prints each report.
func runScenario(sc *scenario.Scenario, counts []int) {
	sc.Servers = counts
	if err := sc.Validate(); err != nil {
		fatalf("Invalid scenario: %v", err)
	}

	var writer *store.SQLiteWriter
	if dbPath != "" {
		w, err := store.NewSQLiteWriter(dbPath)
		if err != nil {
			fatalf("Failed to open database: %v", err)
		}
		writer = w
		atexit.Register(func() {
			if err := writer.Close(); err != nil {
				logrus.Errorf("Closing %s: %v", writer.Path(), err)
			}
		})
	}

	reports := make([]*Report, 0, len(counts))
	for _, c := range counts {
		s, err := sc.NewSimulator(c)
		if err != nil {
			fatalf("Failed to build simulator: %v", err)
		}
		collector := metrics.NewCollector(c)
		s.Sink = collector
		if writer != nil {
			if err := writer.SetRun(s.RunID()); err != nil {
				fatalf("%v", err)
			}
			s.Sink = sim.MultiSink{collector, writer}
		}

		result, err := s.Run()
		if err != nil {
			fatalf("Simulation aborted: %v", err)
		}
		summary := collector.Summary()
		if writer != nil {
			if err := writer.WriteSummary(result.RunID, summary); err != nil {
				fatalf("%v", err)
			}
		}
		reports = append(reports, NewReport(result, summary, s.Trace, showJobs))
	}

	if err := PrintReports(os.Stdout, reports); err != nil {
		fatalf("Failed to print results: %v", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			fatalf("Closing %s: %v", writer.Path(), err)
		}
	}
	logrus.Info("Simulation complete.")
}

// fatalf logs the error and exits through atexit so registered cleanups run.
func fatalf(format string, args ...any) {
	logrus.Errorf(format, args...)
	atexit.Exit(1)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, compareCmd} {
		c.Flags().StringVar(&scenarioPath, "scenario", "", "Path to a YAML scenario file")
		c.Flags().BoolVar(&fixed, "fixed", false, "Use the built-in ten-job fixed schedule")
		c.Flags().Int64Var(&seed, "seed", scenario.DefaultSeed, "Seed for gap and service draws")
		c.Flags().StringVar(&streams, "streams", string(sim.StreamsShared), "Random streams: shared (one generator) or isolated (per subsystem)")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

		c.Flags().IntVar(&numJobs, "jobs", scenario.DefaultJobs, "Number of generated jobs")
		c.Flags().Int64Var(&gapMin, "gap-min", scenario.DefaultGapMin, "Min inter-arrival gap in ticks")
		c.Flags().Int64Var(&gapMax, "gap-max", scenario.DefaultGapMax, "Max inter-arrival gap in ticks")
		c.Flags().Int64Var(&serviceMin, "service-min", scenario.DefaultServiceMin, "Min service time in ticks")
		c.Flags().Int64Var(&serviceMax, "service-max", scenario.DefaultServiceMax, "Max service time in ticks")

		c.Flags().StringVar(&traceLevel, "trace", "none", "Lifecycle trace level (none, transitions)")
		c.Flags().StringVar(&dbPath, "db", "", "Write job records and summaries to this SQLite file")
		c.Flags().BoolVar(&showJobs, "show-jobs", false, "Include per-job records in the report")
	}
	runCmd.Flags().IntVar(&servers, "servers", 1, "Number of servers")
	compareCmd.Flags().IntSliceVar(&serverSweep, "servers", []int{1, 2, 3}, "Comma-separated server counts")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
}
