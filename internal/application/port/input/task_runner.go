package input

import "context"

// TaskRunner drives the per-agent signup workflow.
type TaskRunner interface {
	// RunForAgent executes every configured platform for the agent.
	// Individual task failures are recorded as task status, never
	// returned; the only error is a setup-level one (no platforms
	// configured).
	RunForAgent(ctx context.Context, agentID, email, mailboxID string) error

	// RunTask executes one (agent, platform) task to a settled state.
	// All component errors are absorbed at this boundary and end up as
	// task status plus a published event.
	RunTask(ctx context.Context, agentID, platform, email, mailboxID string)

	// ResumeTask continues a task parked in needs_human after an operator
	// cleared the obstacle. It is the one legal backward transition.
	ResumeTask(ctx context.Context, agentID, platform, mailboxID string) error
}
