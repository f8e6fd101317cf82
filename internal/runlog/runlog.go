// Package runlog persists training run history to a local SQLite
// database: one row per run, one row per completed task. The history
// is what the runs command lists and what cross-run comparisons read.
package runlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RunMeta describes a run at creation time.
type RunMeta struct {
	Dataset  string
	NumTasks int
	Strategy string
	Source   string
	Seed     int64
	Lamb     float64
}

// Run is a stored run. FinishedAt is zero while the run is in
// flight or was aborted.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	RunMeta
}

// Finished reports whether the run recorded a finish time.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// TaskEntry is one task's outcome within a run.
type TaskEntry struct {
	TaskIdx       int
	TrainSamples  int
	ReplaySamples int
	Epochs        int
	PrimaryLoss   float64
	DistillLoss   float64
	TotalLoss     float64
	Duration      time.Duration
}

// Log is a handle on the run history database.
type Log struct {
	db *sql.DB
}

// Open opens or creates the history database at the given path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			id          TEXT PRIMARY KEY,
			started_at  TEXT NOT NULL,
			finished_at TEXT,
			dataset     TEXT NOT NULL,
			num_tasks   INTEGER NOT NULL,
			strategy    TEXT NOT NULL,
			source      TEXT NOT NULL,
			seed        INTEGER NOT NULL,
			lamb        REAL NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create runs table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS task_records(
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL REFERENCES runs(id),
			task_idx       INTEGER NOT NULL,
			train_samples  INTEGER NOT NULL,
			replay_samples INTEGER NOT NULL,
			epochs         INTEGER NOT NULL,
			primary_loss   REAL NOT NULL,
			distill_loss   REAL NOT NULL,
			total_loss     REAL NOT NULL,
			duration_ms    INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create task_records table: %w", err)
	}

	return &Log{db: db}, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// CreateRun registers a new run and returns its ID.
func (l *Log) CreateRun(meta RunMeta) (string, error) {
	id := uuid.New().String()
	started := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := l.db.Exec(
		"INSERT INTO runs(id, started_at, dataset, num_tasks, strategy, source, seed, lamb) VALUES(?,?,?,?,?,?,?,?)",
		id, started, meta.Dataset, meta.NumTasks, meta.Strategy, meta.Source, meta.Seed, meta.Lamb,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's finish time.
func (l *Log) FinishRun(id string) error {
	finished := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := l.db.Exec("UPDATE runs SET finished_at = ? WHERE id = ?", finished, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run with id %s", id)
	}
	return nil
}

// RecordTask appends one task's outcome to a run.
func (l *Log) RecordTask(runID string, entry TaskEntry) error {
	_, err := l.db.Exec(
		`INSERT INTO task_records(run_id, task_idx, train_samples, replay_samples, epochs, primary_loss, distill_loss, total_loss, duration_ms)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		runID, entry.TaskIdx, entry.TrainSamples, entry.ReplaySamples, entry.Epochs,
		entry.PrimaryLoss, entry.DistillLoss, entry.TotalLoss, entry.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record task: %w", err)
	}
	return nil
}

// Run fetches one run by ID.
func (l *Log) Run(id string) (*Run, error) {
	row := l.db.QueryRow(
		"SELECT id, started_at, finished_at, dataset, num_tasks, strategy, source, seed, lamb FROM runs WHERE id = ?",
		id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run with id %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return run, nil
}

// Runs lists stored runs, newest first.
func (l *Log) Runs(limit int) ([]Run, error) {
	rows, err := l.db.Query(
		"SELECT id, started_at, finished_at, dataset, num_tasks, strategy, source, seed, lamb FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// TaskEntries lists a run's task outcomes in the order they were
// recorded.
func (l *Log) TaskEntries(runID string) ([]TaskEntry, error) {
	rows, err := l.db.Query(
		`SELECT task_idx, train_samples, replay_samples, epochs, primary_loss, distill_loss, total_loss, duration_ms
		 FROM task_records WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list task records: %w", err)
	}
	defer rows.Close()

	var entries []TaskEntry
	for rows.Next() {
		var e TaskEntry
		var ms int64
		if err := rows.Scan(&e.TaskIdx, &e.TrainSamples, &e.ReplaySamples, &e.Epochs,
			&e.PrimaryLoss, &e.DistillLoss, &e.TotalLoss, &ms); err != nil {
			return nil, fmt.Errorf("list task records: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list task records: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var started string
	var finished sql.NullString
	if err := row.Scan(&run.ID, &started, &finished, &run.Dataset, &run.NumTasks,
		&run.Strategy, &run.Source, &run.Seed, &run.Lamb); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = t

	if finished.Valid {
		t, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = t
	}
	return &run, nil
}
