package rod

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

const (
	agentMaxIterations  = 15
	agentMaxObservation = 8000
)

const agentSystemPrompt = `You are a browser automation agent filling out a signup form.
Use the tools to inspect the page, fill the credential fields and submit the form.
Never invent selectors: call page_observe first and use only selectors it reports.
When the form has been submitted, reply with a short text message and no tool call.`

// runGoalAgent drives the page through a tool-calling loop until the model
// stops requesting tools or the iteration budget runs out. The caller
// independently verifies the result; nothing here is trusted as success.
func (b *BrowserAdapter) runGoalAgent(ctx context.Context, s *session, spec entity.PlatformSpec, email, password string) error {
	task := fmt.Sprintf("Goal: %s\nSignup email: %s\nSignup password: %s\nExpected page state on success: %s",
		spec.GoalDirected.Goal, email, password, spec.GoalDirected.SuccessIndicator)

	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: agentSystemPrompt},
		{Role: entity.RoleUser, Content: task},
	}

	for iteration := 1; iteration <= agentMaxIterations; iteration++ {
		b.logger.Debug("Goal agent iteration", "platform", spec.Name, "iteration", iteration)

		resp, err := b.llm.Chat(ctx, output.ChatRequest{
			Messages:    messages,
			Tools:       pageToolDefinitions(),
			Temperature: 0.0,
		})
		if err != nil {
			return fmt.Errorf("llm request failed: %w", err)
		}

		messages = append(messages, resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			b.logger.Info("Goal agent finished", "platform", spec.Name, "iterations", iteration)
			return nil
		}

		for _, tc := range resp.Message.ToolCalls {
			observation := b.executePageTool(ctx, s, tc)
			if len(observation) > agentMaxObservation {
				observation = observation[:agentMaxObservation] + "\n... (truncated)"
			}
			messages = append(messages, entity.Message{
				Role:       entity.RoleTool,
				ToolCallID: tc.ID,
				Name:       tc.Name,
				Content:    observation,
			})
		}
	}

	return fmt.Errorf("max iterations (%d) exceeded", agentMaxIterations)
}

func pageToolDefinitions() []entity.ToolDefinition {
	selectorProp := map[string]interface{}{
		"type":        "string",
		"description": "CSS selector of the target element, as reported by page_observe.",
	}
	return []entity.ToolDefinition{
		{
			Name:        "page_observe",
			Description: "Returns the visible text of the page and the selectors of its inputs, buttons and links.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "page_fill",
			Description: "Fills an input field with text, clearing any existing content first.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"selector": selectorProp,
					"text":     map[string]interface{}{"type": "string"},
				},
				"required": []string{"selector", "text"},
			},
		},
		{
			Name:        "page_click",
			Description: "Clicks an element.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"selector": selectorProp,
				},
				"required": []string{"selector"},
			},
		},
	}
}

func (b *BrowserAdapter) executePageTool(ctx context.Context, s *session, tc entity.ToolCall) string {
	switch tc.Name {
	case "page_observe":
		summary, err := pageSummary(s.page)
		if err != nil {
			return "Error: " + err.Error()
		}
		return summary

	case "page_fill":
		var params struct {
			Selector string `json:"selector"`
			Text     string `json:"text"`
		}
		if err := json.Unmarshal([]byte(tc.Arguments), &params); err != nil {
			return "Error: invalid arguments: " + err.Error()
		}
		el, err := s.page.Context(ctx).Timeout(b.cfg.Timeout).Element(params.Selector)
		if err != nil {
			return fmt.Sprintf("Error: field not found: %s", params.Selector)
		}
		if err := el.SelectAllText(); err == nil {
			_ = el.Input("")
		}
		if err := el.Input(params.Text); err != nil {
			return "Error: input failed: " + err.Error()
		}
		return fmt.Sprintf("filled %s", params.Selector)

	case "page_click":
		var params struct {
			Selector string `json:"selector"`
		}
		if err := json.Unmarshal([]byte(tc.Arguments), &params); err != nil {
			return "Error: invalid arguments: " + err.Error()
		}
		el, err := findElement(s.page.Context(ctx), b.cfg.Timeout, params.Selector)
		if err != nil {
			return fmt.Sprintf("Error: element not found: %s", params.Selector)
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return "Error: click failed: " + err.Error()
		}
		s.page.WaitIdle(2 * time.Second)
		return fmt.Sprintf("clicked %s", params.Selector)

	default:
		b.logger.Warn("Unknown page tool called", "name", tc.Name)
		return fmt.Sprintf("Error: unknown tool '%s'", tc.Name)
	}
}

// pageSummary builds a compact observation: trimmed body text plus the
// interactive elements the agent may reference.
func pageSummary(page *rod.Page) (string, error) {
	body, err := page.Timeout(defaultTimeout).Element("body")
	if err != nil {
		return "", fmt.Errorf("body not found: %w", err)
	}

	text, err := body.Text()
	if err != nil {
		text = ""
	}
	text = strings.TrimSpace(text)
	if len(text) > 2000 {
		text = text[:2000] + "..."
	}

	var sb strings.Builder
	sb.WriteString("PAGE TEXT:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nELEMENTS:\n")

	appendElements := func(kind, query string) {
		elements, err := page.Elements(query)
		if err != nil {
			return
		}
		count := 0
		for _, el := range elements {
			if count >= 40 {
				break
			}
			if visible, err := el.Visible(); err != nil || !visible {
				continue
			}
			selector := el.MustElementX("@").String()
			label, _ := el.Text()
			label = strings.TrimSpace(label)
			if label == "" {
				if placeholder, _ := el.Attribute("placeholder"); placeholder != nil {
					label = *placeholder
				}
			}
			fmt.Fprintf(&sb, "[%s] %q selector=%s\n", kind, label, selector)
			count++
		}
	}

	appendElements("input", "input, textarea, select")
	appendElements("button", "button, [type='submit'], [role='button']")
	appendElements("link", "a")

	return sb.String(), nil
}
