// Package ai wraps the generation provider behind an eino chain and hosts the
// augmentation policy.
package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/eargai/earg-backend/internal/config"
)

// Request carries one prompt for the model: system instructions, prior turns
// and the current user message.
type Request struct {
	System  string
	History []*schema.Message
	Query   string
}

// Service is the generation client. It holds no conversational state; the
// caller supplies the full prompt on every call.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService builds the chat model once at startup and compiles the prompt
// chain around it.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

// Generate runs a single complete-response pass.
func (s *Service) Generate(ctx context.Context, req Request) (*schema.Message, error) {
	response, err := s.chain.Invoke(ctx, chainInput(req))
	if err != nil {
		return nil, fmt.Errorf("failed to run generation chain: %w", err)
	}
	return response, nil
}

// Stream runs an incremental-token pass. The caller must drain or close the
// returned reader.
func (s *Service) Stream(ctx context.Context, req Request) (*schema.StreamReader[*schema.Message], error) {
	stream, err := s.chain.Stream(ctx, chainInput(req))
	if err != nil {
		return nil, fmt.Errorf("failed to stream generation chain: %w", err)
	}
	return stream, nil
}

func chainInput(req Request) map[string]any {
	return map[string]any{
		"system":  req.System,
		"history": req.History,
		"query":   req.Query,
	}
}
