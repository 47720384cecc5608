// Package sim provides the discrete-event engine for FIFO multi-server
// queue simulation.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - job.go: Job record and the JobProcess state machine
//     (pending_arrival → queued → in_service → departed)
//   - resource.go: the FIFO server pool
//   - simulator.go: the event loop, event construction and record collection
//
// # Architecture
//
// The engine is single-threaded. A job process suspends only while waiting
// for its arrival, for a free server, and for its service to finish; each
// suspension is an event in the EventHeap, ordered by timestamp and then by
// scheduling order.
//
// Sub-packages consume the engine's output:
//   - sim/metrics/: aggregate statistics over completed jobs
//   - sim/store/: SQLite persistence of job records and summaries
//   - sim/scenario/: YAML scenario files
//   - sim/trace/: lifecycle trace recording
//
// # Key Interfaces
//
//   - Workload: seeds arrivals (FixedSchedule, GeneratedArrivals)
//   - DurationSource: inter-arrival gaps and service times
//   - RecordSink: receives each completed job
package sim
