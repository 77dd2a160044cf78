// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for KYC submissions
// in the directory database. Submissions are created by the external intake
// system; this service lists them and applies accept/reject transitions.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
)

// kycStatusScope filters by submission status; empty status matches all.
func kycStatusScope(status string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if status == "" {
			return q
		}
		return q.Where("status = ?", status)
	}
}

// CountKYCSubmissions returns the number of submissions with the given
// status (all statuses when empty).
func CountKYCSubmissions(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.KYCSubmission{}).
		Scopes(kycStatusScope(status)).
		Count(&total).Error
	return total, err
}

// ListKYCSubmissionsPage returns a page of submissions ordered by the
// provided (already whitelisted) column, optionally filtered by status.
func ListKYCSubmissionsPage(ctx context.Context, db *gorm.DB, status, orderBy string, desc bool, offset, limit int) ([]domain.KYCSubmission, error) {
	if orderBy == "" {
		orderBy = "submitted_at"
	}
	dir := " asc"
	if desc {
		dir = " desc"
	}
	var out []domain.KYCSubmission
	err := db.WithContext(ctx).
		Scopes(kycStatusScope(status)).
		Order(orderBy + dir).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetKYCSubmission fetches a submission by id, or ErrNotFound.
func GetKYCSubmission(ctx context.Context, db *gorm.DB, id string) (*domain.KYCSubmission, error) {
	var s domain.KYCSubmission
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetKYCSubmissionByLawyer fetches the most recent submission for a lawyer,
// or ErrNotFound.
func GetKYCSubmissionByLawyer(ctx context.Context, db *gorm.DB, lawyerID string) (*domain.KYCSubmission, error) {
	var s domain.KYCSubmission
	err := db.WithContext(ctx).
		Where("lawyer_id = ?", lawyerID).
		Order("submitted_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SetKYCStatus transitions a submission to the given status with an optional
// rejection reason. Returns ErrNotFound when the submission does not exist.
func SetKYCStatus(ctx context.Context, db *gorm.DB, id, status, reason string) error {
	res := db.WithContext(ctx).
		Model(&domain.KYCSubmission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":           status,
			"rejection_reason": reason,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
