package entity

import "time"

type TaskStatus string

const (
	TaskStatusPending              TaskStatus = "pending"
	TaskStatusInProgress           TaskStatus = "in_progress"
	TaskStatusAwaitingVerification TaskStatus = "awaiting_verification"
	TaskStatusNeedsHuman           TaskStatus = "needs_human"
	TaskStatusCompleted            TaskStatus = "completed"
	TaskStatusFailed               TaskStatus = "failed"
)

func (s TaskStatus) String() string {
	return string(s)
}

// Terminal reports whether no further automated transition may leave s.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransition encodes the task state machine. Transitions are monotonic:
// a task never re-enters pending, and completed/failed accept nothing.
// The single backward edge is needs_human -> in_progress, taken only by an
// operator-triggered resume.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress || next == TaskStatusFailed
	case TaskStatusInProgress:
		return next == TaskStatusAwaitingVerification ||
			next == TaskStatusNeedsHuman ||
			next == TaskStatusCompleted ||
			next == TaskStatusFailed
	case TaskStatusAwaitingVerification:
		return next == TaskStatusCompleted ||
			next == TaskStatusNeedsHuman ||
			next == TaskStatusFailed
	case TaskStatusNeedsHuman:
		// Resume, or a resume attempt that cannot proceed (session gone).
		return next == TaskStatusInProgress || next == TaskStatusFailed
	default:
		return false
	}
}

// SetupTask is the persisted unit of progress for one (agent, platform)
// pair. Exactly one row exists per pair; it is mutated only by the
// orchestrator task that owns the key.
type SetupTask struct {
	ID               string     `gorm:"primaryKey;size:64"`
	AgentID          string     `gorm:"size:64;uniqueIndex:idx_agent_platform"`
	Platform         string     `gorm:"size:64;uniqueIndex:idx_agent_platform"`
	Status           TaskStatus `gorm:"size:32"`
	BrowserSessionID string     `gorm:"size:128"`
	ErrorMessage     string
	Metadata         string
	UpdatedAt        time.Time

	// LiveViewURL is the operator-facing view of the open session. It is
	// carried on events for the current run, never persisted.
	LiveViewURL string `gorm:"-"`
}
