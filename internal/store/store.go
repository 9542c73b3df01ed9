// Package store records the computation status of pipeline nodes, keyed by
// node UID, so a later run can skip finished work and refuse to start work
// another run has already claimed.
package store

import (
	"errors"
	"time"
)

// DefaultDBName is the status database file name inside the cache folder.
const DefaultDBName = "status.db"

// ErrNotFound is returned for unknown runs.
var ErrNotFound = errors.New("store: not found")

// Status is the computation state of one node.
type Status string

const (
	StatusNone      Status = "NONE"
	StatusSubmitted Status = "SUBMITTED"
	StatusRunning   Status = "RUNNING"
	StatusSuccess   Status = "SUCCESS"
	StatusError     Status = "ERROR"
)

// Active reports whether a node in this state is claimed by a run.
func (s Status) Active() bool {
	return s == StatusSubmitted || s == StatusRunning
}

// NodeStatus is the stored state of one node.
type NodeStatus struct {
	UID       string
	NodeType  string
	NodeName  string
	Status    Status
	RunID     int64 // 0 when not tied to a run
	Error     string
	UpdatedAt time.Time
}

// Run is one execution of a pipeline.
type Run struct {
	ID        int64
	Pipeline  string
	Nodes     int
	Status    Status
	StartedAt time.Time
	EndedAt   time.Time // zero while running
}

// Store is the persistence facade for node and run statuses.
// Implementations are SQLite or in-memory.
type Store interface {
	// NodeStatus returns the state of uid; unknown nodes are StatusNone.
	NodeStatus(uid string) (*NodeStatus, error)
	SetNodeStatus(st *NodeStatus) error
	// ClearNodeStatus forgets the given nodes.
	ClearNodeStatus(uids ...string) error

	BeginRun(pipeline string, nodes int) (runID int64, err error)
	EndRun(runID int64, status Status) error
	GetRun(runID int64) (*Run, error)

	Close() error
}
