package mailpoll

import (
	"context"
	"fmt"
	"time"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

const (
	DefaultMaxAttempts = 30
	defaultDelay       = 5 * time.Second
)

// VerificationTimeoutError is raised when the attempt budget runs out.
// The orchestrator routes it through the same failure path as an
// automation error.
type VerificationTimeoutError struct {
	Platform string
	Attempts int
}

func (e *VerificationTimeoutError) Error() string {
	return fmt.Sprintf("verification email for %s not found after %d attempts", e.Platform, e.Attempts)
}

type Poller struct {
	mailbox output.MailboxPort
	logger  output.LoggerPort
	delay   time.Duration
}

func New(mailbox output.MailboxPort, logger output.LoggerPort) *Poller {
	return &Poller{
		mailbox: mailbox,
		logger:  logger,
		delay:   defaultDelay,
	}
}

// WithDelay overrides the inter-attempt sleep. Used by tests.
func (p *Poller) WithDelay(d time.Duration) *Poller {
	p.delay = d
	return p
}

// WaitForVerification polls the mailbox until a message matching the
// platform yields an OTP or verification link, or the attempt budget is
// exhausted. The sleep between attempts is a deliberate backoff against
// the provider, taken regardless of attempt outcome.
func (p *Poller) WaitForVerification(ctx context.Context, mailboxID, platform string, maxAttempts int) (*entity.VerificationResult, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p.logger.Debug("Polling mailbox", "platform", platform, "attempt", attempt, "maxAttempts", maxAttempts)

		result, err := p.checkOnce(ctx, mailboxID, platform)
		if err != nil {
			p.logger.Warn("Mailbox poll attempt failed", "platform", platform, "attempt", attempt, "error", err)
		} else if result != nil {
			p.logger.Info("Verification found", "platform", platform, "type", result.Type, "attempt", attempt)
			return result, nil
		}

		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mailbox polling canceled: %w", ctx.Err())
		case <-time.After(p.delay):
		}
	}

	return nil, &VerificationTimeoutError{Platform: platform, Attempts: maxAttempts}
}

func (p *Poller) checkOnce(ctx context.Context, mailboxID, platform string) (*entity.VerificationResult, error) {
	messages, err := p.mailbox.ListMessages(ctx, mailboxID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range messages {
		if !MatchesPlatform(msg, platform) {
			continue
		}

		body, err := p.mailbox.GetMessage(ctx, mailboxID, msg.ID)
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", msg.ID, err)
		}

		if result := Extract(body); result != nil {
			return result, nil
		}
	}

	return nil, nil
}
