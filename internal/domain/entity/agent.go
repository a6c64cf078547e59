package entity

import "time"

// Agent is the identity signups run on behalf of. Created before
// orchestration starts; the orchestrator treats it as immutable.
type Agent struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:128"`
	Email     string `gorm:"size:256"`
	MailboxID string `gorm:"size:128"`
	CreatedAt time.Time
}
