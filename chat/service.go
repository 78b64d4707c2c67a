// Package chat runs the /ask conversation: one transcript per session,
// replayed to the chat model on every question.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"autonomeal/apperr"
	"autonomeal/models"
	"autonomeal/upstream"

	"go.uber.org/zap"
)

type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, turn models.Turn) error
	Turns(ctx context.Context, conversationID string) ([]models.Turn, error)
	Delete(ctx context.Context, conversationID string) error
}

// Completer is the chat completion API.
type Completer interface {
	Complete(ctx context.Context, model string, messages []upstream.Message, maxTokens int) (string, error)
}

type Service struct {
	transcripts TranscriptStore
	completer   Completer
	model       string
	logger      *zap.Logger

	mu    sync.Mutex
	locks map[string]*convLock
}

// convLock serializes Ask calls for one conversation. refs counts holders
// and waiters so the entry can be dropped once nobody needs it.
type convLock struct {
	mu   sync.Mutex
	refs int
}

func NewService(transcripts TranscriptStore, completer Completer, model string, logger *zap.Logger) *Service {
	return &Service{
		transcripts: transcripts,
		completer:   completer,
		model:       model,
		logger:      logger,
		locks:       make(map[string]*convLock),
	}
}

// Ask appends question to the conversation, sends the whole transcript to the
// model and records the answer. If the model call fails the question stays in
// the transcript.
func (s *Service) Ask(ctx context.Context, conversationID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperr.BadRequest("Question is required")
	}
	if conversationID == "" {
		return "", apperr.Internal(fmt.Errorf("ask without conversation id"))
	}

	unlock := s.lock(conversationID)
	defer unlock()

	userTurn := models.Turn{Role: models.RoleUser, Content: question}
	if err := s.transcripts.Append(ctx, conversationID, userTurn); err != nil {
		return "", apperr.Internal(fmt.Errorf("append question: %w", err))
	}

	turns, err := s.transcripts.Turns(ctx, conversationID)
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("load transcript: %w", err))
	}

	messages := make([]upstream.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, upstream.TextMessage(string(turn.Role), turn.Content))
	}

	answer, err := s.completer.Complete(ctx, s.model, messages, 0)
	if err != nil {
		return "", apperr.Upstream("Failed to get an answer", err)
	}

	assistantTurn := models.Turn{Role: models.RoleAssistant, Content: answer}
	if err := s.transcripts.Append(ctx, conversationID, assistantTurn); err != nil {
		return "", apperr.Internal(fmt.Errorf("append answer: %w", err))
	}

	s.logger.Debug("question answered",
		zap.String("conversation", shortID(conversationID)),
		zap.Int("turns", len(turns)+1),
	)
	return answer, nil
}

// History returns the conversation so far, oldest turn first.
func (s *Service) History(ctx context.Context, conversationID string) ([]models.Turn, error) {
	turns, err := s.transcripts.Turns(ctx, conversationID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("load transcript: %w", err))
	}
	return turns, nil
}

// Reset forgets the conversation.
func (s *Service) Reset(ctx context.Context, conversationID string) error {
	unlock := s.lock(conversationID)
	defer unlock()

	if err := s.transcripts.Delete(ctx, conversationID); err != nil {
		return apperr.Internal(fmt.Errorf("delete transcript: %w", err))
	}
	return nil
}

func (s *Service) lock(conversationID string) func() {
	s.mu.Lock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &convLock{}
		s.locks[conversationID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, conversationID)
		}
		s.mu.Unlock()
	}
}

// shortID keeps session tokens out of the logs.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
