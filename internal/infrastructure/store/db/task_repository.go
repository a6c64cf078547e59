package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

var _ output.TaskStore = (*TaskRepository)(nil)

type TaskRepository struct {
	db  *gorm.DB
	log output.LoggerPort
}

func NewTaskRepository(db *gorm.DB, log output.LoggerPort) *TaskRepository {
	return &TaskRepository{db: db, log: log}
}

func (r *TaskRepository) Get(ctx context.Context, agentID, platform string) (*entity.SetupTask, error) {
	var task entity.SetupTask
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND platform = ?", agentID, platform).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, output.ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByAgent(ctx context.Context, agentID string) ([]entity.SetupTask, error) {
	var tasks []entity.SetupTask
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("platform").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *entity.SetupTask) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Error("Task create failed", "agentId", task.AgentID, "platform", task.Platform, "error", err)
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateStatus is a single-row atomic update; the owning task is the only
// writer for its (agentID, platform) key, so no locking beyond the row
// update itself is needed.
func (r *TaskRepository) UpdateStatus(ctx context.Context, agentID, platform string, status entity.TaskStatus, fields output.TaskFields) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now(),
	}
	if fields.BrowserSessionID != nil {
		updates["browser_session_id"] = *fields.BrowserSessionID
	}
	if fields.ErrorMessage != nil {
		updates["error_message"] = *fields.ErrorMessage
	}
	if fields.Metadata != nil {
		updates["metadata"] = *fields.Metadata
	}

	result := r.db.WithContext(ctx).
		Model(&entity.SetupTask{}).
		Where("agent_id = ? AND platform = ?", agentID, platform).
		Updates(updates)
	if result.Error != nil {
		r.log.Error("Task status update failed",
			"agentId", agentID, "platform", platform, "status", status, "error", result.Error)
		return fmt.Errorf("update task status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return output.ErrTaskNotFound
	}
	return nil
}
