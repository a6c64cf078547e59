package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

var _ output.CredentialStore = (*CredentialRepository)(nil)

// CredentialRepository is the read-only view of the vault table. Writing
// credentials is the provisioning flow's job, not this service's.
type CredentialRepository struct {
	db *gorm.DB
}

func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Get(ctx context.Context, agentID, platform string) (*entity.Credential, error) {
	var cred entity.Credential
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND platform = ?", agentID, platform).
		First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, output.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	return &cred, nil
}
