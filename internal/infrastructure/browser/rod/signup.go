package rod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

func (b *BrowserAdapter) PerformSignup(ctx context.Context, bs output.BrowserSession, spec entity.PlatformSpec, email, password string) (entity.SignupOutcome, error) {
	s, err := b.resolve(bs)
	if err != nil {
		return "", err
	}

	if err := b.Navigate(ctx, bs, spec.SignupURL); err != nil {
		return "", fmt.Errorf("open signup page for %s: %w", spec.Name, err)
	}

	if detectCaptcha(s.page) {
		b.logger.Warn("CAPTCHA detected before submit", "platform", spec.Name, "sessionId", s.id)
		return entity.SignupOutcomeCaptcha, nil
	}

	var outcome entity.SignupOutcome
	switch {
	case spec.Deterministic != nil:
		if err := b.runSteps(ctx, s, spec.Deterministic.Steps, email, password); err != nil {
			return "", fmt.Errorf("signup steps for %s: %w", spec.Name, err)
		}
		outcome = entity.SignupOutcomeCompleted
	case spec.GoalDirected != nil:
		if err := b.runGoalAgent(ctx, s, spec, email, password); err != nil {
			return "", fmt.Errorf("goal-directed signup for %s: %w", spec.Name, err)
		}
		// The agent's own completion claim is not trusted; the page has
		// to show the form was actually left behind.
		if !b.verifySubmitted(ctx, s, spec.GoalDirected.SuccessIndicator) {
			return "", fmt.Errorf("goal-directed signup for %s: form still present after agent reported done", spec.Name)
		}
		outcome = entity.SignupOutcomeFormSubmitted
	default:
		return "", fmt.Errorf("platform %s has no signup strategy", spec.Name)
	}

	if detectCaptcha(s.page) {
		b.logger.Warn("CAPTCHA detected after submit", "platform", spec.Name, "sessionId", s.id)
		return entity.SignupOutcomeCaptcha, nil
	}

	return outcome, nil
}

func (b *BrowserAdapter) runSteps(ctx context.Context, s *session, steps []entity.SignupStep, email, password string) error {
	for i, step := range steps {
		value := substitutePlaceholders(step.Value, email, password)

		switch step.Action {
		case entity.StepFill:
			el, err := s.page.Context(ctx).Timeout(b.cfg.Timeout).Element(step.Selector)
			if err != nil {
				return fmt.Errorf("step %d: field not found: %s: %w", i+1, step.Selector, err)
			}
			if err := el.SelectAllText(); err == nil {
				_ = el.Input("")
			}
			if err := el.Input(value); err != nil {
				return fmt.Errorf("step %d: input failed: %w", i+1, err)
			}

		case entity.StepClick, entity.StepSubmit:
			el, err := findElement(s.page.Context(ctx), b.cfg.Timeout, step.Selector)
			if err != nil {
				return fmt.Errorf("step %d: element not found: %s: %w", i+1, step.Selector, err)
			}
			if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
				return fmt.Errorf("step %d: click failed: %w", i+1, err)
			}
			if step.Action == entity.StepSubmit {
				s.page.WaitIdle(navIdleWait)
			} else {
				s.page.WaitIdle(2 * time.Second)
			}

		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
	}
	return nil
}

// findElement resolves CSS selectors and XPath the same way: XPath when
// the selector starts with / or is prefixed with "xpath=".
func findElement(page *rod.Page, timeout time.Duration, selector string) (*rod.Element, error) {
	if strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "xpath=") {
		return page.Timeout(timeout).ElementX(strings.TrimPrefix(selector, "xpath="))
	}
	return page.Timeout(timeout).Element(selector)
}

func substitutePlaceholders(value, email, password string) string {
	value = strings.ReplaceAll(value, "{{email}}", email)
	value = strings.ReplaceAll(value, "{{password}}", password)
	return value
}

// verifySubmitted inspects the live page for evidence the signup form was
// left behind: the success indicator text is visible, or no password
// field remains.
func (b *BrowserAdapter) verifySubmitted(ctx context.Context, s *session, successIndicator string) bool {
	body, err := s.page.Context(ctx).Timeout(b.cfg.Timeout).Element("body")
	if err != nil {
		return false
	}

	if successIndicator != "" {
		text, err := body.Text()
		if err == nil && strings.Contains(strings.ToLower(text), strings.ToLower(successIndicator)) {
			return true
		}
	}

	el, err := s.page.Timeout(2 * time.Second).Element("input[type='password']")
	if err != nil {
		// No password field left: the form is gone.
		return true
	}
	visible, err := el.Visible()
	return err == nil && !visible
}
