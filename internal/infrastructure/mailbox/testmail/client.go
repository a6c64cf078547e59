package testmail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"signup-agent/internal/application/port/output"
	"signup-agent/internal/domain/entity"
)

var _ output.MailboxPort = (*Client)(nil)

// Client talks to the hosted mailbox provider's JSON API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL: "https://api.testmail.app",
		APIKey:  apiKey,
		Timeout: 15 * time.Second,
	}
}

func NewClient(cfg Config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

type messageDTO struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
}

type listResponse struct {
	Result   string       `json:"result"`
	Message  string       `json:"message"`
	Messages []messageDTO `json:"emails"`
}

func (c *Client) ListMessages(ctx context.Context, mailboxID string) ([]entity.MailMessage, error) {
	endpoint := fmt.Sprintf("%s/api/json?apikey=%s&namespace=%s&pretty=false",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(mailboxID))

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed listResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("decode mailbox listing: %w", err)
	}
	if parsed.Result == "fail" {
		return nil, fmt.Errorf("mailbox provider error: %s", parsed.Message)
	}

	messages := make([]entity.MailMessage, 0, len(parsed.Messages))
	for _, m := range parsed.Messages {
		messages = append(messages, entity.MailMessage{
			ID:        m.ID,
			From:      m.From,
			Subject:   m.Subject,
			Timestamp: m.Timestamp,
		})
	}
	return messages, nil
}

func (c *Client) GetMessage(ctx context.Context, mailboxID, messageID string) (*entity.MailBody, error) {
	endpoint := fmt.Sprintf("%s/api/json?apikey=%s&namespace=%s&id=%s&pretty=false",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(mailboxID), url.QueryEscape(messageID))

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var parsed listResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if parsed.Result == "fail" {
		return nil, fmt.Errorf("mailbox provider error: %s", parsed.Message)
	}
	if len(parsed.Messages) == 0 {
		return nil, fmt.Errorf("message %s not found", messageID)
	}

	return &entity.MailBody{
		Text: parsed.Messages[0].Text,
		HTML: parsed.Messages[0].HTML,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mailbox request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mailbox provider returned %d", resp.StatusCode)
	}
	return body, nil
}
