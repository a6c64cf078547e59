package output

import (
	"context"
	"errors"

	"signup-agent/internal/domain/entity"
)

var (
	ErrTaskNotFound       = errors.New("setup task not found")
	ErrCredentialNotFound = errors.New("credential not found")
)

// TaskFields are the optional columns carried along with a status update.
// Nil pointers leave the column untouched.
type TaskFields struct {
	BrowserSessionID *string
	ErrorMessage     *string
	Metadata         *string
}

// TaskStore persists the current SetupTask rows. UpdateStatus must be an
// atomic single-row update; no two concurrent tasks ever write the same
// (agentID, platform) key, so row-level atomicity is all that is needed.
type TaskStore interface {
	Get(ctx context.Context, agentID, platform string) (*entity.SetupTask, error)
	ListByAgent(ctx context.Context, agentID string) ([]entity.SetupTask, error)
	Create(ctx context.Context, task *entity.SetupTask) error
	UpdateStatus(ctx context.Context, agentID, platform string, status entity.TaskStatus, fields TaskFields) error
}

// CredentialStore is the read-only view of the vault.
type CredentialStore interface {
	Get(ctx context.Context, agentID, platform string) (*entity.Credential, error)
}
