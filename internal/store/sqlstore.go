package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, ns.String)
	return t
}

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates a SQLite DB at path and checks its schema version.
// Creates the parent directory (the cache folder) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db, now: time.Now}
	if err := s.checkSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) checkSchema() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return errors.New("read schema version: schema_version is empty")
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// freshInstall runs inside a transaction.
func (s *SqlStore) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SqlStore) Close() error {
	return s.db.Close()
}

// NodeStatus implements Store.
func (s *SqlStore) NodeStatus(uid string) (*NodeStatus, error) {
	st := &NodeStatus{UID: uid, Status: StatusNone}
	var runID sql.NullInt64
	var errMsg, updated sql.NullString
	err := s.db.QueryRow(
		`SELECT node_type, node_name, status, run_id, error_message, updated_at
		 FROM node_status WHERE uid = ?`, uid,
	).Scan(&st.NodeType, &st.NodeName, &st.Status, &runID, &errMsg, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get node status %s: %w", uid, err)
	}
	st.RunID = runID.Int64
	st.Error = errMsg.String
	st.UpdatedAt = parseTime(updated)
	return st, nil
}

// SetNodeStatus implements Store. UpdatedAt is set to the current time.
func (s *SqlStore) SetNodeStatus(st *NodeStatus) error {
	st.UpdatedAt = s.now()
	var runID sql.NullInt64
	if st.RunID != 0 {
		runID = sql.NullInt64{Int64: st.RunID, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO node_status(uid, node_type, node_name, status, run_id, error_message, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET
		   node_type = excluded.node_type,
		   node_name = excluded.node_name,
		   status = excluded.status,
		   run_id = excluded.run_id,
		   error_message = excluded.error_message,
		   updated_at = excluded.updated_at`,
		st.UID, st.NodeType, st.NodeName, string(st.Status), runID, st.Error, formatTime(st.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("set node status %s: %w", st.UID, err)
	}
	return nil
}

// ClearNodeStatus implements Store.
func (s *SqlStore) ClearNodeStatus(uids ...string) error {
	if len(uids) == 0 {
		return nil
	}
	args := make([]any, len(uids))
	for i, u := range uids {
		args[i] = u
	}
	q := "DELETE FROM node_status WHERE uid IN (?" + strings.Repeat(", ?", len(uids)-1) + ")"
	if _, err := s.db.Exec(q, args...); err != nil {
		return fmt.Errorf("clear node status: %w", err)
	}
	return nil
}

// BeginRun implements Store.
func (s *SqlStore) BeginRun(pipeline string, nodes int) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO runs(pipeline, nodes, status, started_at) VALUES(?, ?, ?, ?)",
		pipeline, nodes, string(StatusRunning), formatTime(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// EndRun implements Store.
func (s *SqlStore) EndRun(runID int64, status Status) error {
	res, err := s.db.Exec(
		"UPDATE runs SET status = ?, ended_at = ? WHERE id = ?",
		string(status), formatTime(s.now()), runID,
	)
	if err != nil {
		return fmt.Errorf("end run %d: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end run %d: %w", runID, ErrNotFound)
	}
	return nil
}

// GetRun implements Store.
func (s *SqlStore) GetRun(runID int64) (*Run, error) {
	r := &Run{ID: runID}
	var started, ended sql.NullString
	err := s.db.QueryRow(
		"SELECT pipeline, nodes, status, started_at, ended_at FROM runs WHERE id = ?", runID,
	).Scan(&r.Pipeline, &r.Nodes, &r.Status, &started, &ended)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", runID, err)
	}
	r.StartedAt = parseTime(started)
	r.EndedAt = parseTime(ended)
	return r, nil
}
