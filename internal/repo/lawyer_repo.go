// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Lawyer
// model, which lives in the separate directory database. Rows are created by
// an external intake system; this service only reads, updates, and deletes.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
)

// lawyerFilterScope composes the case-insensitive substring search plus the
// role-equality and minimum-experience filters used by lawyer listings.
// search must already be case-folded by the caller; an empty search matches
// everything, empty role and non-positive minExperience disable their filters.
// practice_areas is stored as a JSON array, so the substring match runs over
// its serialized form.
func lawyerFilterScope(search, role string, minExperience int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if search != "" {
			needle := "%" + search + "%"
			q = q.Where(
				"LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(office_address) LIKE ? OR LOWER(practice_areas) LIKE ?",
				needle, needle, needle, needle, needle,
			)
		}
		if role != "" {
			q = q.Where("role = ?", role)
		}
		if minExperience > 0 {
			q = q.Where("experience_years >= ?", minExperience)
		}
		return q
	}
}

// CountLawyers returns the number of lawyers matching the filters.
func CountLawyers(ctx context.Context, db *gorm.DB, search, role string, minExperience int) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Lawyer{}).
		Scopes(lawyerFilterScope(search, role, minExperience)).
		Count(&total).Error
	return total, err
}

// ListLawyersPage returns a page of lawyers matching the filters, ordered by
// the provided (already whitelisted) column.
func ListLawyersPage(ctx context.Context, db *gorm.DB, search, role string, minExperience int, orderBy string, desc bool, offset, limit int) ([]domain.Lawyer, error) {
	if orderBy == "" {
		orderBy = "created_at"
	}
	dir := " asc"
	if desc {
		dir = " desc"
	}
	var out []domain.Lawyer
	err := db.WithContext(ctx).
		Scopes(lawyerFilterScope(search, role, minExperience)).
		Order(orderBy + dir).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetLawyer fetches a lawyer by id, or ErrNotFound.
func GetLawyer(ctx context.Context, db *gorm.DB, id string) (*domain.Lawyer, error) {
	var l domain.Lawyer
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// UpdateLawyerFields applies a whitelisted partial update. Returns
// ErrNotFound when the lawyer does not exist.
func UpdateLawyerFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Lawyer, error) {
	if len(fields) > 0 {
		res := db.WithContext(ctx).
			Model(&domain.Lawyer{}).
			Where("id = ?", id).
			Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return GetLawyer(ctx, db, id)
}

// DeleteLawyer removes a lawyer row and any KYC submissions attached to it.
// Returns ErrNotFound when the lawyer does not exist.
func DeleteLawyer(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&domain.Lawyer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("lawyer_id = ?", id).Delete(&domain.KYCSubmission{}).Error
	})
}
