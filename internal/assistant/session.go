// Package assistant runs the per-turn dispatch between the user, the chat
// model and the stock tools.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/internal/conversation"
	"github.com/dyike/StockPilot/internal/tools"
)

// Reply is what a turn produces for display: either answer text or the path
// of a rendered chart.
type Reply struct {
	Text      string
	ImagePath string
	Tool      string
}

type Options struct {
	ModelTimeout time.Duration
	SystemPrompt string
	Logger       zerolog.Logger
}

// Session owns one conversation. Turns are serialised.
type Session struct {
	mu sync.Mutex

	chat     model.ToolCallingChatModel
	toolChat model.ToolCallingChatModel
	registry *tools.Registry
	state    *conversation.State
	opts     Options
	logger   zerolog.Logger
}

func NewSession(cm model.ToolCallingChatModel, registry *tools.Registry, opts Options) (*Session, error) {
	s := &Session{
		registry: registry,
		state:    conversation.New(),
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "assistant").Logger(),
	}
	if err := s.bind(cm); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) bind(cm model.ToolCallingChatModel) error {
	if cm == nil {
		return errors.New("chat model is nil")
	}
	toolChat, err := cm.WithTools(s.registry.ToolInfos())
	if err != nil {
		return fmt.Errorf("bind tools: %w", err)
	}
	s.chat = cm
	s.toolChat = toolChat
	return nil
}

// SetModel swaps the chat model used by later turns.
func (s *Session) SetModel(cm model.ToolCallingChatModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bind(cm)
}

func (s *Session) SetSystemPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.SystemPrompt = prompt
}

// History returns the recorded conversation.
func (s *Session) History() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Messages()
}

func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reset()
}

// Turn handles one user message. On any error the conversation is left as it
// was before the call.
func (s *Session) Turn(ctx context.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.state.Checkpoint()
	reply, err := s.turn(ctx, text)
	if err != nil {
		s.state.Rollback(cp)
		s.logger.Warn().Err(err).Int("messages", s.state.Len()).Msg("turn rolled back")
		return nil, err
	}
	return reply, nil
}

func (s *Session) turn(ctx context.Context, text string) (*Reply, error) {
	s.state.Append(schema.UserMessage(text))

	msg, err := s.generate(ctx, s.toolChat, StageInitial)
	if err != nil {
		return nil, err
	}

	if len(msg.ToolCalls) == 0 {
		s.state.Append(schema.AssistantMessage(msg.Content, nil))
		return &Reply{Text: msg.Content}, nil
	}

	call := msg.ToolCalls[0]
	if len(msg.ToolCalls) > 1 {
		s.logger.Debug().Int("tool_calls", len(msg.ToolCalls)).Msg("executing first tool call only")
	}
	if call.ID == "" {
		call.ID = "call_" + call.Function.Name
	}
	name := call.Function.Name

	s.logger.Info().Str("tool", name).Str("arguments", call.Function.Arguments).Msg("tool requested")
	res, err := s.registry.Invoke(ctx, name, call.Function.Arguments)
	if err != nil {
		return nil, err
	}

	if spec, _ := s.registry.Lookup(name); spec.Kind == tools.KindPlot {
		return &Reply{ImagePath: res.ImagePath, Tool: name}, nil
	}

	s.state.Append(
		&schema.Message{
			Role:      schema.Assistant,
			Content:   msg.Content,
			ToolCalls: []schema.ToolCall{call},
		},
		schema.ToolMessage(res.Text, call.ID, schema.WithToolName(name)),
	)

	answer, err := s.generate(ctx, s.chat, StageFollowup)
	if err != nil {
		return nil, err
	}
	s.state.Append(schema.AssistantMessage(answer.Content, nil))
	return &Reply{Text: answer.Content, Tool: name}, nil
}

func (s *Session) generate(ctx context.Context, cm model.ToolCallingChatModel, stage string) (*schema.Message, error) {
	if s.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ModelTimeout)
		defer cancel()
	}

	input := s.state.Messages()
	if s.opts.SystemPrompt != "" {
		input = append([]*schema.Message{schema.SystemMessage(s.opts.SystemPrompt)}, input...)
	}

	start := time.Now()
	msg, err := cm.Generate(ctx, input)
	if err != nil {
		return nil, &ModelAPIError{Stage: stage, Err: err}
	}
	if msg == nil {
		return nil, &ModelAPIError{Stage: stage, Err: errors.New("empty response")}
	}

	s.logger.Info().
		Str("stage", stage).
		Int("messages", len(input)).
		Int("tool_calls", len(msg.ToolCalls)).
		Dur("elapsed", time.Since(start)).
		Msg("model call")
	return msg, nil
}
