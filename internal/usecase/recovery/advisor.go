package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

const advisorSystemPrompt = `You are a diagnostic assistant for a failed automated signup.
You are given the platform name, the error text and a screenshot of the page.
Suggest the single next corrective action an operator should take.
Respond with a JSON object: {"action": "...", "selector": "...", "value": "...", "reasoning": "..."}.
"action" and "reasoning" are mandatory; "selector" and "value" only when an element is involved.`

// Advisor produces one best-effort diagnostic suggestion after a task
// fails. It opens a fresh session because the failed one's state is not
// trusted, and it never applies what it suggests.
type Advisor struct {
	browser output.BrowserPort
	llm     output.LLMPort
	logger  output.LoggerPort
}

func New(browser output.BrowserPort, llm output.LLMPort, logger output.LoggerPort) *Advisor {
	return &Advisor{
		browser: browser,
		llm:     llm,
		logger:  logger,
	}
}

func (a *Advisor) Recover(ctx context.Context, spec entity.PlatformSpec, errorContext string) (*entity.RecoverySuggestion, error) {
	session, err := a.browser.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open diagnostic session: %w", err)
	}
	defer a.browser.CloseSession(session)

	if err := a.browser.Navigate(ctx, session, spec.SignupURL); err != nil {
		return nil, fmt.Errorf("navigate diagnostic session: %w", err)
	}

	screenshot, err := a.browser.Screenshot(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("capture diagnostic screenshot: %w", err)
	}

	prompt := fmt.Sprintf("Platform: %s\nError: %s\nThe screenshot shows the signup page as it renders now.",
		spec.Name, errorContext)

	resp, err := a.llm.Chat(ctx, output.ChatRequest{
		Messages: []entity.Message{
			{Role: entity.RoleSystem, Content: advisorSystemPrompt},
			{Role: entity.RoleUser, Content: prompt, Image: screenshot.Data},
		},
		Temperature: 0.0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("advisor llm request failed: %w", err)
	}

	suggestion, err := parseSuggestion(resp.Message.Content)
	if err != nil {
		return nil, err
	}

	a.logger.Info("Recovery suggestion produced",
		"platform", spec.Name,
		"action", suggestion.Action,
		"selector", suggestion.Selector,
	)
	return suggestion, nil
}

func parseSuggestion(content string) (*entity.RecoverySuggestion, error) {
	content = strings.TrimSpace(content)

	// Some models wrap JSON in a fenced block even in JSON mode.
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var suggestion entity.RecoverySuggestion
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		return nil, fmt.Errorf("parse advisor response: %w", err)
	}
	if suggestion.Reasoning == "" {
		return nil, fmt.Errorf("advisor response missing reasoning")
	}
	if suggestion.Action == "" {
		return nil, fmt.Errorf("advisor response missing action")
	}
	return &suggestion, nil
}
