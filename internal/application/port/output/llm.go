package output

import (
	"context"

	"signup-agent/internal/domain/entity"
)

type LLMPort interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Messages    []entity.Message
	Tools       []entity.ToolDefinition
	Temperature float32
	// JSONMode forces the model to answer with a single JSON object.
	JSONMode bool
}

type ChatResponse struct {
	Message entity.Message
}
