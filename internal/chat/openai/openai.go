// Package openai implements chat.Completer on the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"esuvi/internal/chat"
	"esuvi/internal/log"
)

// Completer calls the chat completions endpoint.
type Completer struct {
	client *goopenai.Client
	logger *log.Logger
}

// New creates a Completer. An empty baseURL uses the public OpenAI API;
// otherwise any compatible server can be targeted.
func New(apiKey, baseURL string, logger *log.Logger) (*Completer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Completer{
		client: goopenai.NewClientWithConfig(cfg),
		logger: log.OrDiscard(logger).WithComponent(log.ComponentChat).With("provider", "openai"),
	}, nil
}

// Complete implements chat.Completer.
func (c *Completer) Complete(ctx context.Context, req chat.Request) (string, error) {
	model := req.Model
	if model == "" {
		model = goopenai.GPT3Dot5Turbo
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(req.Messages),
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	c.logger.DebugContext(ctx, "Completion received",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

func toMessages(msgs []chat.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs)+1)
	out = append(out, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleSystem,
		Content: chat.SystemPrompt,
	})
	for _, m := range msgs {
		role := goopenai.ChatMessageRoleUser
		switch m.Role {
		case chat.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		case chat.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		}
		out = append(out, goopenai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
