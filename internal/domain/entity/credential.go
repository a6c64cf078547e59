package entity

import "time"

// Credential is per (agent, platform) secret material. The orchestrator
// reads it once before automation begins and never writes it back; the
// vault that produces it is an external collaborator.
type Credential struct {
	AgentID          string `gorm:"size:64;uniqueIndex:idx_cred_agent_platform"`
	Platform         string `gorm:"size:64;uniqueIndex:idx_cred_agent_platform"`
	Email            string `gorm:"size:256"`
	Password         string `gorm:"size:256"`
	APIKey           string `gorm:"size:512"`
	AdditionalTokens string
	CreatedAt        time.Time
}
