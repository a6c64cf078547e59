package entity

import "time"

// StatusEvent is an immutable record of a task transition or informational
// update. Events are never persisted; they exist only on the event bus and
// are lost if nobody is subscribed at publish time.
//
// The JSON field names are the wire contract for any push transport and
// must not change.
type StatusEvent struct {
	TaskID           string     `json:"taskId"`
	AgentID          string     `json:"agentId"`
	Platform         string     `json:"platform"`
	Status           TaskStatus `json:"status"`
	Message          string     `json:"message"`
	BrowserSessionID string     `json:"browserSessionId,omitempty"`
	Screenshot       []byte     `json:"screenshot,omitempty"`
	LiveViewURL      string     `json:"liveViewUrl,omitempty"`
	Timestamp        string     `json:"timestamp"`
}

// NewStatusEvent stamps the event with the current time in ISO-8601.
func NewStatusEvent(taskID, agentID, platform string, status TaskStatus, message string) StatusEvent {
	return StatusEvent{
		TaskID:    taskID,
		AgentID:   agentID,
		Platform:  platform,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
