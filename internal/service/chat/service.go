// Package chat orchestrates one conversation turn: moderation, user-turn
// persistence bounded by a soft deadline, model generation with tools, and
// assistant-turn persistence. Nothing escapes a turn uncaught: every
// failure degrades to a complete, well-formed streamed message.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zodiai/backend/internal/logsink"
	modelchat "github.com/zodiai/backend/internal/model/chat"
	"github.com/zodiai/backend/internal/service/ai"
	"github.com/zodiai/backend/internal/service/moderation"
	"github.com/zodiai/backend/pkg/utils"
)

// persistTimeout bounds how long a turn waits on the user-turn write before
// proceeding to generation. The write itself is not cancelled; it continues
// detached and its outcome is logged when it settles.
const persistTimeout = time.Second

// fallbackMessage is the single fixed response for any unhandled failure in
// the generation path.
const fallbackMessage = "Panditji ko abhi astrology service se signal nahi mil raha, lekin main general Vedic astrology ke basis par baat kar sakta hoon. Thoda simple shabdon mein apna sawaal phir se batao, beta."

// Stable text-part ids for the canned streams, matched by the web client.
const (
	denialTextID   = "moderation-denial-text"
	fallbackTextID = "fallback-error-text"
)

// Moderator classifies the latest user text.
type Moderator interface {
	Check(ctx context.Context, text string) moderation.Verdict
}

// Generator streams model output for a prepared message history.
type Generator interface {
	Stream(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error)
}

// TurnStore persists sessions and their append-only turn lists.
type TurnStore interface {
	AppendTurn(ctx context.Context, sessionID string, turn modelchat.Turn, details *modelchat.BirthDetails) (modelchat.Turn, error)
	BirthDetails(ctx context.Context, sessionID string) (*modelchat.BirthDetails, error)
}

// TurnRequest carries one inbound chat turn.
type TurnRequest struct {
	SessionID    string
	Messages     []modelchat.UIMessage
	BirthDetails *modelchat.BirthDetails
}

// Service is the turn orchestrator.
type Service struct {
	moderator Moderator
	generator Generator
	store     TurnStore
	fanout    *logsink.Fanout
	logger    *zap.Logger
}

// NewService wires the orchestrator.
func NewService(moderator Moderator, generator Generator, store TurnStore, fanout *logsink.Fanout, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fanout == nil {
		fanout = logsink.NewFanout(logger)
	}
	return &Service{
		moderator: moderator,
		generator: generator,
		store:     store,
		fanout:    fanout,
		logger:    logger,
	}
}

// HandleTurn runs one full turn and streams the outcome to w. It never
// returns an error to the HTTP layer: denial, success and failure all end in
// a complete streamed message.
func (s *Service) HandleTurn(ctx context.Context, w *utils.StreamWriter, req TurnRequest) {
	latestUserText := modelchat.LatestUserText(req.Messages)

	if latestUserText != "" && s.moderator != nil {
		verdict := s.moderator.Check(ctx, latestUserText)
		if verdict.Flagged {
			denial := verdict.DenialMessage
			if denial == "" {
				denial = moderation.DefaultDenialMessage
			}
			w.WriteMessage(denialTextID, denial)
			return
		}
	}

	s.persistUserTurn(ctx, req)

	response, ok := s.generate(ctx, w, req.Messages)
	if !ok {
		return
	}

	s.persistAssistantTurn(ctx, req.SessionID, response)
}

// persistUserTurn writes the latest user turn, racing the write against the
// soft deadline. Whichever settles first, generation proceeds; a slow write
// keeps running detached from the request context.
func (s *Service) persistUserTurn(ctx context.Context, req TurnRequest) {
	if req.SessionID == "" || len(req.Messages) == 0 {
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != modelchat.RoleUser {
		return
	}
	text := last.Text()

	done := make(chan error, 1)
	go func() {
		done <- s.saveUserTurn(context.WithoutCancel(ctx), req.SessionID, text, req.BirthDetails)
	}()

	timer := time.NewTimer(persistTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("failed to persist user turn",
				zap.String("session", req.SessionID), zap.Error(err))
		}
	case <-timer.C:
		s.logger.Warn("user turn persistence exceeded deadline, proceeding",
			zap.String("session", req.SessionID), zap.Duration("deadline", persistTimeout))
		go func() {
			if err := <-done; err != nil {
				s.logger.Error("detached user turn persistence failed",
					zap.String("session", req.SessionID), zap.Error(err))
			} else {
				s.logger.Info("detached user turn persistence completed",
					zap.String("session", req.SessionID))
			}
		}()
	}
}

// saveUserTurn appends the turn to the primary store, then mirrors the
// flattened row into the secondary sinks. Sink failures never propagate.
func (s *Service) saveUserTurn(ctx context.Context, sessionID, text string, details *modelchat.BirthDetails) error {
	_, err := s.store.AppendTurn(ctx, sessionID, modelchat.Turn{
		Role:        modelchat.RoleUser,
		Content:     text,
		IsGenerated: false,
	}, details)
	if err != nil {
		return err
	}

	merged, err := s.store.BirthDetails(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to read birth details for log row",
			zap.String("session", sessionID), zap.Error(err))
		merged = details
	}

	s.fanout.Append(ctx, logsink.Row{
		Name:       merged.NameLabel(),
		BirthDate:  merged.DateLabel(),
		BirthTime:  merged.TimeLabel(),
		BirthPlace: merged.PlaceLabel(),
		Prompt:     text,
	})
	return nil
}

// generate streams the model response. Returns the full assistant text and
// whether generation completed; on any failure the fixed fallback message
// has already been streamed.
func (s *Service) generate(ctx context.Context, w *utils.StreamWriter, messages []modelchat.UIMessage) (string, bool) {
	if s.generator == nil {
		s.logger.Error("chat model unavailable")
		w.WriteMessage(fallbackTextID, fallbackMessage)
		return "", false
	}

	stream, err := s.generator.Stream(ctx, ai.BuildHistory(messages))
	if err != nil {
		s.logger.Error("model invocation failed", zap.Error(err))
		w.WriteMessage(fallbackTextID, fallbackMessage)
		return "", false
	}
	defer stream.Close()

	textID := uuid.NewString()
	var full strings.Builder
	started := false

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			s.logger.Error("model stream failed", zap.Error(recvErr))
			if !started {
				w.WriteMessage(fallbackTextID, fallbackMessage)
			} else {
				w.TextDelta(textID, "\n\n"+fallbackMessage)
				w.TextEnd(textID)
				w.Finish()
				w.Done()
			}
			return "", false
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}

		if !started {
			w.Start()
			w.TextStart(textID)
			started = true
		}
		chunks = append(chunks, chunk)
		full.WriteString(chunk.Content)
		w.TextDelta(textID, chunk.Content)
	}

	if !started {
		w.Start()
		w.TextStart(textID)
	}
	w.TextEnd(textID)
	w.Finish()
	w.Done()

	if len(chunks) > 0 {
		if merged, err := schema.ConcatMessages(chunks); err == nil {
			return merged.Content, true
		}
	}
	return full.String(), true
}

// persistAssistantTurn writes the assistant reply. Completion of the stream
// already implies the model finished, so no deadline race here.
func (s *Service) persistAssistantTurn(ctx context.Context, sessionID, content string) {
	if sessionID == "" || content == "" {
		return
	}
	_, err := s.store.AppendTurn(context.WithoutCancel(ctx), sessionID, modelchat.Turn{
		Role:        modelchat.RoleAssistant,
		Content:     content,
		IsGenerated: true,
	}, nil)
	if err != nil {
		s.logger.Error("failed to persist assistant turn",
			zap.String("session", sessionID), zap.Error(err))
	}
}
