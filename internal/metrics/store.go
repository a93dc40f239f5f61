package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"oreminer/internal/config"
)

// Store manages metric persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Session describes one supervised miner process lifetime.
type Session struct {
	ID        string
	StartedAt time.Time
	EndedAt   *time.Time
	ExitCode  *int
	Binary    string
	RPCURL    string
}

// SampleRecord is a stored sample with its recording metadata.
type SampleRecord struct {
	ID         int64
	SessionID  string
	Kind       Kind
	Value      float64
	RecordedAt time.Time
}

// SubmissionRecord is a stored transaction submission.
type SubmissionRecord struct {
	ID         int64
	SessionID  string
	TxHash     string
	RecordedAt time.Time
}

// Summary aggregates the latest value per metric kind plus store totals.
type Summary struct {
	Latest       map[Kind]SampleRecord
	SampleCount  int64
	Submissions  int64
	SessionCount int64
	LastSession  *Session
}

// Open initializes or connects to the metrics database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.MetricsDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// BeginSession records the start of a supervised miner process.
func (s *Store) BeginSession(ctx context.Context, id, binary, rpcURL string) error {
	if id == "" {
		return errors.New("session id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, binary, rpc_url) VALUES (?, ?, ?, ?)`,
		id, now, binary, rpcURL,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession records the miner exit for an open session.
func (s *Store) EndSession(ctx context.Context, id string, exitCode int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, exit_code = ? WHERE id = ? AND ended_at IS NULL`,
		now, exitCode, id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %q not found or already ended", id)
	}
	return nil
}

// RecordSample persists one parsed numeric metric.
func (s *Store) RecordSample(ctx context.Context, sessionID string, sample Sample) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (session_id, kind, value, recorded_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(sample.Kind), sample.Value, now,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// RecordSubmission persists one observed transaction hash.
func (s *Store) RecordSubmission(ctx context.Context, sessionID, txHash string) error {
	if txHash == "" {
		return errors.New("tx hash is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (session_id, tx_hash, recorded_at) VALUES (?, ?, ?)`,
		sessionID, txHash, now,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// RecentSamples returns up to limit samples, newest first.
func (s *Store) RecentSamples(ctx context.Context, limit int) ([]SampleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, value, recorded_at FROM samples ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var records []SampleRecord
	for rows.Next() {
		record, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return records, nil
}

// RecentSubmissions returns up to limit submissions, newest first.
func (s *Store) RecentSubmissions(ctx context.Context, limit int) ([]SubmissionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, tx_hash, recorded_at FROM submissions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var records []SubmissionRecord
	for rows.Next() {
		var record SubmissionRecord
		var recordedAt string
		if err := rows.Scan(&record.ID, &record.SessionID, &record.TxHash, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		record.RecordedAt, err = parseStoredTime(recordedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return records, nil
}

// Summarize aggregates the latest value per kind together with store totals.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	summary := Summary{Latest: make(map[Kind]SampleRecord, 4)}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, value, recorded_at FROM samples
         WHERE id IN (SELECT MAX(id) FROM samples GROUP BY kind)`,
	)
	if err != nil {
		return summary, fmt.Errorf("query latest samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		record, err := scanSample(rows)
		if err != nil {
			return summary, err
		}
		summary.Latest[record.Kind] = record
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate latest samples: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM samples`).Scan(&summary.SampleCount); err != nil {
		return summary, fmt.Errorf("count samples: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM submissions`).Scan(&summary.Submissions); err != nil {
		return summary, fmt.Errorf("count submissions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions`).Scan(&summary.SessionCount); err != nil {
		return summary, fmt.Errorf("count sessions: %w", err)
	}

	last, err := s.lastSession(ctx)
	if err != nil {
		return summary, err
	}
	summary.LastSession = last
	return summary, nil
}

// Prune removes samples, submissions, and ended sessions older than
// retentionDays. A value of 0 disables pruning.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339Nano)

	var removed int64
	for _, stmt := range []string{
		`DELETE FROM samples WHERE recorded_at < ?`,
		`DELETE FROM submissions WHERE recorded_at < ?`,
		`DELETE FROM sessions WHERE ended_at IS NOT NULL AND ended_at < ?`,
	} {
		res, err := s.db.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return removed, fmt.Errorf("prune metrics: %w", err)
		}
		count, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("prune rows affected: %w", err)
		}
		removed += count
	}
	return removed, nil
}

func (s *Store) lastSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, ended_at, exit_code, binary, rpc_url
         FROM sessions ORDER BY started_at DESC LIMIT 1`,
	)
	var session Session
	var startedAt string
	var endedAt sql.NullString
	var exitCode sql.NullInt64
	err := row.Scan(&session.ID, &startedAt, &endedAt, &exitCode, &session.Binary, &session.RPCURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if session.StartedAt, err = parseStoredTime(startedAt); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		ended, err := parseStoredTime(endedAt.String)
		if err != nil {
			return nil, err
		}
		session.EndedAt = &ended
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		session.ExitCode = &code
	}
	return &session, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (SampleRecord, error) {
	var record SampleRecord
	var kind, recordedAt string
	if err := row.Scan(&record.ID, &record.SessionID, &kind, &record.Value, &recordedAt); err != nil {
		return record, fmt.Errorf("scan sample: %w", err)
	}
	record.Kind = Kind(kind)
	var err error
	if record.RecordedAt, err = parseStoredTime(recordedAt); err != nil {
		return record, err
	}
	return record, nil
}

func parseStoredTime(value string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", value, err)
	}
	return parsed, nil
}
