// Package services – ConversationService
//
// This file implements ConversationService, the application-level component
// that owns chat threads and their turns. It enforces ownership, persists the
// user's turn before any external call, forwards a bounded trailing window of
// the conversation to the generation endpoint, and appends the returned reply
// (or a fixed fallback when the call fails in any way).
//
// Optional enhancement: it also auto-generates a conversation title from the
// first user message when the conversation still has a default/empty title.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include conversation/account identifiers where applicable.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/ai"
	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/repo"
)

const (
	// FallbackReply is stored as the bot turn whenever the generation call
	// cannot produce a real answer.
	FallbackReply = "Sorry — no reply"

	// defaultTitle is the placeholder for conversations created without one;
	// it stays eligible for auto-titling from the first user message.
	defaultTitle = "New chat"

	// contextWindow bounds how many trailing turns are sent to the generation
	// endpoint.
	contextWindow = 20

	// titleWords is how many leading words of the first message become the title.
	titleWords = 3
)

// ConversationService coordinates conversation persistence and the
// reply-generation flow.
type ConversationService struct {
	// DB is the GORM handle for the primary database.
	DB *gorm.DB
	// Generator produces bot replies; failures are swallowed into FallbackReply.
	Generator ai.Generator
}

// Create inserts a new conversation owned by accountID with the provided
// title, falling back to the default placeholder when blank.
func (s *ConversationService) Create(ctx context.Context, accountID, title string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("account.id", accountID)),
	)
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle
	}
	c, err := repo.CreateConversation(ctx, s.DB, accountID, title)
	if err != nil {
		return nil, err
	}
	c.Turns = []domain.Turn{}
	return c, nil
}

// ListPage returns a page of the account's conversations ordered by recent
// activity, plus the total count.
func (s *ConversationService) ListPage(ctx context.Context, accountID string, page, limit int) ([]domain.Conversation, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("account.id", accountID),
			attribute.Int("page", page),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	total, err := repo.CountConversations(ctx, s.DB, accountID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}
	items, err := repo.ListConversationsPage(ctx, s.DB, accountID, offset, limit)
	return items, total, err
}

// Get returns the conversation with its turns in order. ErrForbidden is
// returned when the requester is not the owner, so callers can distinguish a
// foreign conversation from a missing one.
func (s *ConversationService) Get(ctx context.Context, accountID, id string) (*domain.Conversation, error) {
	c, err := repo.GetConversationWithTurns(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if c.AccountID != accountID {
		return nil, ErrForbidden
	}
	if c.Turns == nil {
		c.Turns = []domain.Turn{}
	}
	return c, nil
}

// PostTurn appends the user's message, asks the generator for a reply using
// the trailing context window, appends the bot turn, and returns the reply
// together with the full conversation. The user turn is persisted before the
// external call is attempted, so a failed call never loses the message.
func (s *ConversationService) PostTurn(ctx context.Context, accountID, conversationID, text string) (string, *domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "PostTurn",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("account.id", accountID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, ErrEmptyMessage
	}

	c, err := repo.GetConversation(ctx, s.DB, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrConversationNotFound
		}
		return "", nil, err
	}
	if c.AccountID != accountID {
		return "", nil, ErrForbidden
	}

	return s.exchange(ctx, c, text)
}

// CreateWithFirstTurn creates a conversation titled from the first words of
// the message and runs the same post-turn flow against it.
func (s *ConversationService) CreateWithFirstTurn(ctx context.Context, accountID, text string) (string, *domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "CreateWithFirstTurn",
		trace.WithAttributes(attribute.String("account.id", accountID)),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil, ErrEmptyMessage
	}

	c, err := repo.CreateConversation(ctx, s.DB, accountID, autoTitle(text))
	if err != nil {
		return "", nil, err
	}
	return s.exchange(ctx, c, text)
}

// exchange is the shared turn flow: persist the user turn, generate (or fall
// back), persist the bot turn, reload the conversation.
func (s *ConversationService) exchange(ctx context.Context, c *domain.Conversation, text string) (string, *domain.Conversation, error) {
	if _, err := repo.CreateTurn(ctx, s.DB, c.ID, domain.RoleUser, text); err != nil {
		return "", nil, err
	}

	// Auto-title if the conversation still carries a placeholder.
	if c.Title == "" || c.Title == defaultTitle {
		if t := autoTitle(text); t != defaultTitle {
			if err := repo.UpdateConversationTitle(ctx, s.DB, c.ID, c.AccountID, t); err != nil {
				log.Warn().Err(err).Str("conversation_id", c.ID).Msg("auto-title update failed")
			}
		}
	}

	// Trailing window includes the turn just appended.
	window, err := repo.ListRecentTurns(ctx, s.DB, c.ID, contextWindow)
	if err != nil {
		return "", nil, err
	}
	payload := make([]ai.TurnPayload, 0, len(window))
	for _, t := range window {
		payload = append(payload, ai.TurnPayload{Role: t.Role, Text: t.Text})
	}

	reply := FallbackReply
	if s.Generator != nil {
		if r, err := s.Generator.Generate(ctx, payload, text); err != nil {
			log.Warn().Err(err).Str("conversation_id", c.ID).Msg("generation call failed")
		} else {
			reply = r
		}
	}

	if _, err := repo.CreateTurn(ctx, s.DB, c.ID, domain.RoleBot, reply); err != nil {
		return "", nil, err
	}
	if err := repo.TouchConversation(ctx, s.DB, c.ID); err != nil {
		return "", nil, err
	}

	full, err := repo.GetConversationWithTurns(ctx, s.DB, c.ID)
	if err != nil {
		return "", nil, err
	}
	return reply, full, nil
}

// EditTurn replaces the text of an existing turn, enforcing ownership.
func (s *ConversationService) EditTurn(ctx context.Context, accountID, conversationID, turnID, text string) (*domain.Turn, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "EditTurn",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("turn.id", turnID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c, err := repo.GetConversation(ctx, s.DB, conversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if c.AccountID != accountID {
		return nil, ErrForbidden
	}

	if err := repo.UpdateTurnText(ctx, s.DB, conversationID, turnID, text); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTurnNotFound
		}
		return nil, err
	}
	t, err := repo.GetTurn(ctx, s.DB, conversationID, turnID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrTurnNotFound
	}
	return t, err
}

// Delete removes the conversation and all its turns, enforcing ownership.
func (s *ConversationService) Delete(ctx context.Context, accountID, id string) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("conversation.id", id),
			attribute.String("account.id", accountID),
		),
	)
	defer span.End()

	c, err := repo.GetConversation(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if c.AccountID != accountID {
		return ErrForbidden
	}
	err = repo.DeleteConversation(ctx, s.DB, id, accountID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// autoTitle derives a title from the first whitespace-separated words of a
// message, falling back to the default placeholder when nothing remains.
func autoTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > titleWords {
		words = words[:titleWords]
	}
	if t := strings.Join(words, " "); t != "" {
		return t
	}
	return defaultTitle
}
