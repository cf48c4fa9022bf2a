// Package ai drives the chat model: a ReAct agent over the configured
// provider with the three ZodiAI tools attached.
package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/zodiai/backend/internal/config"
	"github.com/zodiai/backend/internal/model/chat"
)

const (
	// historyWindow bounds how many recent messages reach the model. The
	// orchestrator does not reconstruct context beyond this sliding window.
	historyWindow = 20

	// maxToolSteps caps agent tool-call iterations per turn.
	maxToolSteps = 10
)

// Service encapsulates model invocation for chat turns.
type Service struct {
	agent  *react.Agent
	logger *zap.Logger
}

// NewService compiles a ReAct agent from the configured chat model and the
// supplied tools.
func NewService(ctx context.Context, cfg config.AIConfig, tools []tool.BaseTool, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	agent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig:      compose.ToolsNodeConfig{Tools: tools},
		MaxStep:          maxToolSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build react agent: %w", err)
	}

	return &Service{agent: agent, logger: logger}, nil
}

// Stream invokes the agent with the system prompt plus the prepared history
// and returns the model output stream.
func (s *Service) Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	input := make([]*schema.Message, 0, len(messages)+1)
	input = append(input, schema.SystemMessage(SystemPrompt()))
	input = append(input, messages...)

	stream, err := s.agent.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream agent output: %w", err)
	}
	return stream, nil
}

// BuildHistory converts the client's UI messages into model messages,
// trimmed to the most recent window. Non-text parts and unknown roles are
// dropped.
func BuildHistory(messages []chat.UIMessage) []*schema.Message {
	windowed := chat.TailWindow(messages, historyWindow)

	history := make([]*schema.Message, 0, len(windowed))
	for _, msg := range windowed {
		text := msg.Text()
		if text == "" {
			continue
		}
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(text, nil))
		}
	}
	return history
}
