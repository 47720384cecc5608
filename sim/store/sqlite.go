// Package store persists job records and run summaries to SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"

	// Registers the pure-Go "sqlite" driver.
	_ "github.com/glebarez/go-sqlite"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/queue-sim/sim"
	"github.com/inference-sim/queue-sim/sim/metrics"
)

const defaultBatchSize = 1000

// SQLiteWriter is a sim.RecordSink that buffers job records and writes them
// to a SQLite database in batches, one transaction per flush.
type SQLiteWriter struct {
	db        *sql.DB
	jobStmt   *sql.Stmt
	path      string
	runID     string
	batchSize int
	pending   []sim.Job
	closed    bool
}

// NewSQLiteWriter creates the database at path and prepares its tables.
// An empty path picks a fresh "queue_sim_<xid>.sqlite3" file in the working
// directory. An existing file is reused; rows are keyed by run ID.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if path == "" {
		path = "queue_sim_" + xid.New().String() + ".sqlite3"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	w := &SQLiteWriter{db: db, path: path, batchSize: defaultBatchSize}
	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	w.jobStmt, err = db.Prepare(`INSERT INTO jobs
		(run_id, job_index, arrival_time, delay, service_time, departure_time)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing job insert: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Job records are collected in database: %s\n", path)
	return w, nil
}

func (w *SQLiteWriter) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			run_id         TEXT    NOT NULL,
			job_index      INTEGER NOT NULL,
			arrival_time   INTEGER NOT NULL,
			delay          INTEGER NOT NULL,
			service_time   INTEGER NOT NULL,
			departure_time INTEGER NOT NULL,
			PRIMARY KEY (run_id, job_index)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			capacity     INTEGER NOT NULL,
			jobs         INTEGER NOT NULL,
			avg_delay    REAL    NOT NULL,
			avg_service  REAL    NOT NULL,
			avg_sojourn  REAL    NOT NULL,
			span         INTEGER NOT NULL,
			utilization  REAL    NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := w.db.Exec(s); err != nil {
			return fmt.Errorf("creating tables in %s: %w", w.path, err)
		}
	}
	return nil
}

// Path returns the database file name.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// DB exposes the underlying handle for queries.
func (w *SQLiteWriter) DB() *sql.DB {
	return w.db
}

// SetRun sets the run ID attached to subsequent records. Pending records of
// the previous run are flushed first.
func (w *SQLiteWriter) SetRun(runID string) error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.runID = runID
	return nil
}

// Record implements sim.RecordSink.
func (w *SQLiteWriter) Record(job sim.Job) error {
	w.pending = append(w.pending, job)
	if len(w.pending) >= w.batchSize {
		return w.Flush()
	}
	return nil
}

// Flush writes all buffered records in a single transaction.
func (w *SQLiteWriter) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt := tx.Stmt(w.jobStmt)
	for _, j := range w.pending {
		if _, err := stmt.Exec(w.runID, j.Index, j.ArrivalTime, j.Delay, j.ServiceTime, j.DepartureTime); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting job %d of run %s: %w", j.Index, w.runID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %d job records: %w", len(w.pending), err)
	}

	logrus.Debugf("Flushed %d job records of run %s to %s", len(w.pending), w.runID, w.path)
	w.pending = nil
	return nil
}

// WriteSummary stores the aggregates of run runID.
func (w *SQLiteWriter) WriteSummary(runID string, s *metrics.Summary) error {
	_, err := w.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, capacity, jobs, avg_delay, avg_service, avg_sojourn, span, utilization)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, s.Capacity, s.Jobs, s.AvgDelay, s.AvgService, s.AvgSojourn, s.Span, s.Utilization)
	if err != nil {
		return fmt.Errorf("writing summary of run %s: %w", runID, err)
	}
	return nil
}

// LoadJobs reads back the records of a run ordered by job index.
func (w *SQLiteWriter) LoadJobs(runID string) ([]sim.Job, error) {
	rows, err := w.db.Query(`SELECT job_index, arrival_time, delay, service_time, departure_time
		FROM jobs WHERE run_id = ? ORDER BY job_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying jobs of run %s: %w", runID, err)
	}
	defer rows.Close()

	var jobs []sim.Job
	for rows.Next() {
		var j sim.Job
		if err := rows.Scan(&j.Index, &j.ArrivalTime, &j.Delay, &j.ServiceTime, &j.DepartureTime); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Close flushes pending records and closes the database. Calling Close
// more than once is a no-op.
func (w *SQLiteWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	flushErr := w.Flush()
	if w.jobStmt != nil {
		w.jobStmt.Close()
	}
	if err := w.db.Close(); err != nil {
		return err
	}
	return flushErr
}
