// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Book model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
)

// CreateBook inserts a new Book row with a UUID primary key and UTC timestamp.
func CreateBook(ctx context.Context, db *gorm.DB, b *domain.Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(b).Error
}

// GetBook fetches a book by id, or ErrNotFound.
func GetBook(ctx context.Context, db *gorm.DB, id string) (*domain.Book, error) {
	var b domain.Book
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooks returns all books ordered by creation time descending. The
// catalog is small enough that listings are unpaginated.
func ListBooks(ctx context.Context, db *gorm.DB) ([]domain.Book, error) {
	var out []domain.Book
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

// SaveBook persists all fields of an already-loaded book row.
func SaveBook(ctx context.Context, db *gorm.DB, b *domain.Book) error {
	return db.WithContext(ctx).Save(b).Error
}

// DeleteBook removes a book row by id. Returns ErrNotFound when no row was
// deleted.
func DeleteBook(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Book{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
