// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Conversation
// and Turn models.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a conversation or turn is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.ConversationService) which enforces ownership, auto-titling,
// and the reply-generation flow.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
)

// CreateConversation inserts a new Conversation row for the account.
func CreateConversation(ctx context.Context, db *gorm.DB, accountID, title string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// CountConversations returns the total number of conversations owned by the
// account.
func CountConversations(ctx context.Context, db *gorm.DB, accountID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("account_id = ?", accountID).
		Count(&n).Error
	return n, err
}

// ListConversationsPage returns a page of the account's conversations ordered
// by most recent activity.
func ListConversationsPage(ctx context.Context, db *gorm.DB, accountID string, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetConversation fetches a conversation by id without ownership scoping;
// callers enforce ownership against the returned AccountID so a foreign
// conversation can be distinguished from a missing one.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversationWithTurns fetches a conversation and preloads its turns in
// chronological order.
func GetConversationWithTurns(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Preload("Turns", func(q *gorm.DB) *gorm.DB {
			return q.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateConversationTitle updates the title of a conversation, enforcing
// account ownership. Returns ErrNotFound when no matching row exists.
func UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, accountID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND account_id = ?", id, accountID).
		Updates(map[string]any{"title": title, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchConversation bumps UpdatedAt so activity-ordered listings surface the
// conversation first.
func TouchConversation(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}

// DeleteConversation removes a conversation and its turns, enforcing account
// ownership. Turn deletion is explicit rather than relying on SQLite cascade
// enforcement being enabled.
func DeleteConversation(ctx context.Context, db *gorm.DB, id, accountID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND account_id = ?", id, accountID).
			Delete(&domain.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("conversation_id = ?", id).Delete(&domain.Turn{}).Error
	})
}

// DeleteConversationsByAccount removes every conversation (and its turns)
// owned by the account. Used when the account itself is deleted.
func DeleteConversationsByAccount(ctx context.Context, db *gorm.DB, accountID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&domain.Conversation{}).
			Where("account_id = ?", accountID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("conversation_id IN ?", ids).Delete(&domain.Turn{}).Error; err != nil {
			return err
		}
		return tx.Where("account_id = ?", accountID).Delete(&domain.Conversation{}).Error
	})
}

// CreateTurn appends a turn to a conversation.
func CreateTurn(ctx context.Context, db *gorm.DB, conversationID, role, text string) (*domain.Turn, error) {
	t := &domain.Turn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTurn fetches a turn by id scoped to its conversation, or ErrNotFound.
func GetTurn(ctx context.Context, db *gorm.DB, conversationID, turnID string) (*domain.Turn, error) {
	var t domain.Turn
	err := db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", turnID, conversationID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTurns returns every turn of a conversation in chronological order.
func ListTurns(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.Turn, error) {
	var out []domain.Turn
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// ListRecentTurns returns the trailing n turns of a conversation in
// chronological order. The query fetches newest-first and the slice is
// reversed in memory.
func ListRecentTurns(ctx context.Context, db *gorm.DB, conversationID string, n int) ([]domain.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []domain.Turn
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// UpdateTurnText updates a turn's text, scoped to its conversation. Returns
// ErrNotFound when no matching row exists.
func UpdateTurnText(ctx context.Context, db *gorm.DB, conversationID, turnID, text string) error {
	res := db.WithContext(ctx).
		Model(&domain.Turn{}).
		Where("id = ? AND conversation_id = ?", turnID, conversationID).
		Update("text", text)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTurn removes a turn, scoped to its conversation. Returns ErrNotFound
// when no matching row exists.
func DeleteTurn(ctx context.Context, db *gorm.DB, conversationID, turnID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND conversation_id = ?", turnID, conversationID).
		Delete(&domain.Turn{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
