package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"signup-agent/internal/application/port/input"
	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
	"signup-agent/internal/usecase/mailpoll"
)

var _ input.TaskRunner = (*UseCase)(nil)

// VerificationPoller waits for the platform's verification email.
type VerificationPoller interface {
	WaitForVerification(ctx context.Context, mailboxID, platform string, maxAttempts int) (*entity.VerificationResult, error)
}

// RecoveryAdvisor produces a single diagnostic suggestion after a failure.
type RecoveryAdvisor interface {
	Recover(ctx context.Context, spec entity.PlatformSpec, errorContext string) (*entity.RecoverySuggestion, error)
}

const defaultSettleDelay = 3 * time.Second

// UseCase owns the per-(agent, platform) task lifecycle: it sequences the
// browser adapter and mailbox poller, persists every transition and
// publishes it on the event bus. It is the only component that runs tasks
// concurrently.
type UseCase struct {
	platforms []entity.PlatformSpec
	browser   output.BrowserPort
	poller    VerificationPoller
	advisor   RecoveryAdvisor
	tasks     output.TaskStore
	creds     output.CredentialStore
	bus       output.EventBus
	logger    output.LoggerPort

	maxPollAttempts int
	settleDelay     time.Duration
}

type Config struct {
	Platforms       []entity.PlatformSpec
	MaxPollAttempts int
	SettleDelay     time.Duration
}

func New(
	cfg Config,
	browser output.BrowserPort,
	poller VerificationPoller,
	advisor RecoveryAdvisor,
	tasks output.TaskStore,
	creds output.CredentialStore,
	bus output.EventBus,
	logger output.LoggerPort,
) *UseCase {
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = mailpoll.DefaultMaxAttempts
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	return &UseCase{
		platforms:       cfg.Platforms,
		browser:         browser,
		poller:          poller,
		advisor:         advisor,
		tasks:           tasks,
		creds:           creds,
		bus:             bus,
		logger:          logger,
		maxPollAttempts: cfg.MaxPollAttempts,
		settleDelay:     cfg.SettleDelay,
	}
}

// RunForAgent splits the platform list by CAPTCHA likelihood: unlikely
// flows run concurrently, likely ones strictly one at a time so a single
// operator can watch each live view in turn. Order within each subset
// follows the configured order. A task failing never blocks the rest.
func (uc *UseCase) RunForAgent(ctx context.Context, agentID, email, mailboxID string) error {
	if len(uc.platforms) == 0 {
		return fmt.Errorf("no platforms configured")
	}

	var parallel, sequential []entity.PlatformSpec
	for _, spec := range uc.platforms {
		if spec.CaptchaLikely {
			sequential = append(sequential, spec)
		} else {
			parallel = append(parallel, spec)
		}
	}

	uc.logger.Info("Starting agent setup",
		"agentId", agentID,
		"parallel", len(parallel),
		"sequential", len(sequential),
	)

	var wg sync.WaitGroup
	for _, spec := range parallel {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			uc.RunTask(ctx, agentID, platform, email, mailboxID)
		}(spec.Name)
	}
	wg.Wait()

	for _, spec := range sequential {
		uc.RunTask(ctx, agentID, spec.Name, email, mailboxID)
	}

	uc.logger.Info("Agent setup finished", "agentId", agentID)
	return nil
}

// RunTask drives one task to a settled state. Every component error is
// absorbed here; nothing escapes to the caller.
func (uc *UseCase) RunTask(ctx context.Context, agentID, platform, email, mailboxID string) {
	log := uc.logger.WithFields(map[string]any{"agentId": agentID, "platform": platform})

	spec, ok := uc.specFor(platform)
	if !ok {
		log.Error("Unknown platform requested")
		return
	}

	task, err := uc.tasks.Get(ctx, agentID, platform)
	if err != nil {
		log.Error("Task row not found", "error", err)
		return
	}
	if task.Status != entity.TaskStatusPending {
		// Re-entry guard: a settled or in-flight task must not produce
		// any further side effects.
		log.Warn("Task not runnable, skipping", "status", task.Status)
		return
	}

	uc.transition(ctx, task, entity.TaskStatusInProgress, "Starting automated signup", output.TaskFields{})

	cred, err := uc.creds.Get(ctx, agentID, platform)
	if err != nil {
		// Fatal precondition: no credential means no signup attempt and
		// no recovery, since there is no page to diagnose.
		if errors.Is(err, output.ErrCredentialNotFound) {
			uc.fail(ctx, task, "credential not found")
		} else {
			uc.fail(ctx, task, fmt.Sprintf("credential lookup failed: %v", err))
		}
		return
	}

	session, err := uc.browser.CreateSession(ctx)
	if err != nil {
		// Provider unavailable: immediate failure, no recovery attempt.
		uc.fail(ctx, task, fmt.Sprintf("browser session creation failed: %v", err))
		return
	}

	task.BrowserSessionID = session.ID()
	task.LiveViewURL = session.LiveViewURL()
	sessionID := session.ID()
	uc.transition(ctx, task, entity.TaskStatusInProgress, "Browser session ready",
		output.TaskFields{BrowserSessionID: &sessionID})

	needsHuman := false
	defer func() {
		// The needs_human path deliberately leaves the session open for
		// the operator; every other path releases it.
		if !needsHuman {
			uc.browser.CloseSession(session)
		}
	}()

	if err := uc.automate(ctx, task, spec, session, cred, mailboxID, &needsHuman); err != nil {
		uc.recoverAndFail(ctx, task, spec, err)
	}
}

// ResumeTask is the single legal backward transition: an operator cleared
// the CAPTCHA and asks the flow to continue against the same session.
func (uc *UseCase) ResumeTask(ctx context.Context, agentID, platform, mailboxID string) error {
	spec, ok := uc.specFor(platform)
	if !ok {
		return fmt.Errorf("unknown platform %q", platform)
	}

	task, err := uc.tasks.Get(ctx, agentID, platform)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if task.Status != entity.TaskStatusNeedsHuman {
		return fmt.Errorf("cannot resume task in status %s", task.Status)
	}

	session, err := uc.browser.ConnectSession(ctx, task.BrowserSessionID)
	if err != nil {
		uc.fail(ctx, task, fmt.Sprintf("resume failed: %v", err))
		return fmt.Errorf("reconnect session: %w", err)
	}

	task.LiveViewURL = session.LiveViewURL()
	uc.transition(ctx, task, entity.TaskStatusInProgress, "Resuming after operator intervention", output.TaskFields{})

	// The operator claims the obstacle is gone; verify before rejoining,
	// and park again if the widget is still on the page. Re-running the
	// signup flow would discard whatever state the operator unblocked.
	captcha, err := uc.browser.CheckCaptcha(ctx, session)
	if err != nil {
		uc.fail(ctx, task, fmt.Sprintf("resume failed: %v", err))
		return fmt.Errorf("check captcha: %w", err)
	}
	if captcha {
		uc.transition(ctx, task, entity.TaskStatusNeedsHuman,
			"CAPTCHA still present, operator attention required", output.TaskFields{})
		return nil
	}

	needsHuman := false
	defer func() {
		if !needsHuman {
			uc.browser.CloseSession(session)
		}
	}()

	if err := uc.verify(ctx, task, spec, session, mailboxID); err != nil {
		uc.recoverAndFail(ctx, task, spec, err)
	}
	return nil
}

// automate runs the signup and verification stages. A nil return means
// the task settled in completed or parked in needs_human; any error is
// routed to the recovery path by the caller.
func (uc *UseCase) automate(
	ctx context.Context,
	task *entity.SetupTask,
	spec entity.PlatformSpec,
	session output.BrowserSession,
	cred *entity.Credential,
	mailboxID string,
	needsHuman *bool,
) error {
	outcome, err := uc.browser.PerformSignup(ctx, session, spec, cred.Email, cred.Password)
	if err != nil {
		return err
	}

	if outcome == entity.SignupOutcomeCaptcha {
		*needsHuman = true
		uc.transition(ctx, task, entity.TaskStatusNeedsHuman,
			"CAPTCHA detected, operator attention required", output.TaskFields{})
		return nil
	}

	return uc.verify(ctx, task, spec, session, mailboxID)
}

// verify waits for the verification email and applies it to the session.
// Entered from automate after a submitted form, or directly from
// ResumeTask once the operator cleared the page.
func (uc *UseCase) verify(
	ctx context.Context,
	task *entity.SetupTask,
	spec entity.PlatformSpec,
	session output.BrowserSession,
	mailboxID string,
) error {
	uc.transition(ctx, task, entity.TaskStatusAwaitingVerification,
		"Waiting for verification email", output.TaskFields{})

	result, err := uc.poller.WaitForVerification(ctx, mailboxID, spec.Name, uc.maxPollAttempts)
	if err != nil {
		return err
	}

	switch result.Type {
	case entity.VerificationOTP:
		if err := uc.browser.InjectOTP(ctx, session, result.Value); err != nil {
			return fmt.Errorf("inject otp: %w", err)
		}
	case entity.VerificationLink:
		if result.OTP != "" {
			if err := uc.browser.InjectOTP(ctx, session, result.OTP); err != nil {
				return fmt.Errorf("inject otp before link: %w", err)
			}
		}
		if err := uc.browser.Navigate(ctx, session, result.Value); err != nil {
			return fmt.Errorf("open verification link: %w", err)
		}
	}

	// Let redirects and confirmation screens settle before declaring
	// victory.
	select {
	case <-ctx.Done():
		return fmt.Errorf("task canceled: %w", ctx.Err())
	case <-time.After(uc.settleDelay):
	}

	uc.transition(ctx, task, entity.TaskStatusCompleted, "Account created and verified", output.TaskFields{})
	return nil
}

// recoverAndFail runs the advisor once as a diagnostic, publishes its
// rationale when it produces one, and always finishes by failing the task
// with the original error. Advisor failures are swallowed: recovery must
// never mask the real failure.
func (uc *UseCase) recoverAndFail(ctx context.Context, task *entity.SetupTask, spec entity.PlatformSpec, taskErr error) {
	suggestion, err := uc.advisor.Recover(ctx, spec, taskErr.Error())
	if err != nil {
		uc.logger.Warn("Recovery advisor failed",
			"agentId", task.AgentID, "platform", task.Platform, "error", err)
	} else {
		uc.publish(task, entity.TaskStatusInProgress,
			fmt.Sprintf("Recovery suggestion (%s): %s", suggestion.Action, suggestion.Reasoning))
	}

	uc.fail(ctx, task, taskErr.Error())
}

func (uc *UseCase) fail(ctx context.Context, task *entity.SetupTask, message string) {
	errMsg := message
	uc.transition(ctx, task, entity.TaskStatusFailed, message, output.TaskFields{ErrorMessage: &errMsg})
}

// transition persists a status change and publishes it. Violating the
// state machine is a programming error; it is logged and dropped rather
// than written.
func (uc *UseCase) transition(ctx context.Context, task *entity.SetupTask, next entity.TaskStatus, message string, fields output.TaskFields) {
	if task.Status != next && !task.Status.CanTransition(next) {
		uc.logger.Error("Illegal status transition dropped",
			"agentId", task.AgentID, "platform", task.Platform,
			"from", task.Status, "to", next)
		return
	}

	if err := uc.tasks.UpdateStatus(ctx, task.AgentID, task.Platform, next, fields); err != nil {
		uc.logger.Error("Failed to persist status",
			"agentId", task.AgentID, "platform", task.Platform,
			"status", next, "error", err)
	}
	task.Status = next

	uc.publish(task, next, message)
}

func (uc *UseCase) publish(task *entity.SetupTask, status entity.TaskStatus, message string) {
	event := entity.NewStatusEvent(task.ID, task.AgentID, task.Platform, status, message)
	event.BrowserSessionID = task.BrowserSessionID
	event.LiveViewURL = task.LiveViewURL
	uc.bus.Publish(event)
}

func (uc *UseCase) specFor(platform string) (entity.PlatformSpec, bool) {
	for _, spec := range uc.platforms {
		if spec.Name == platform {
			return spec, true
		}
	}
	return entity.PlatformSpec{}, false
}
