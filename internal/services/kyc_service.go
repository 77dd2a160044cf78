// Package services – KYCService
//
// This file implements KYCService, which reviews lawyer verification
// submissions stored in the directory database. Submissions arrive from an
// external intake system already populated with document references; this
// service lists them and applies the accept/reject transitions. Transitions
// are one-directional: once a submission leaves pending it cannot be decided
// again.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/repo"
)

// kycSortColumns whitelists sortable submission fields (API name -> column).
var kycSortColumns = map[string]string{
	"submittedAt": "submitted_at",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"status":      "status",
}

// KYCService lists and decides lawyer verification submissions.
type KYCService struct {
	// DB is the GORM handle for the directory database.
	DB *gorm.DB
}

// ListPage returns a page of submissions, optionally filtered by status and
// sorted by a whitelisted field (submission time descending by default).
func (s *KYCService) ListPage(ctx context.Context, page, limit int, status, sortBy, sortOrder string) ([]domain.KYCSubmission, int64, error) {
	tr := otel.Tracer("services/KYCService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("limit", limit),
			attribute.String("status", status),
		),
	)
	defer span.End()

	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.KYCStatusPending, domain.KYCStatusAccepted, domain.KYCStatusRejected:
	default:
		return nil, 0, ErrInvalidStatus
	}

	_, limit, offset := normalizePaging(page, limit)
	column, ok := kycSortColumns[sortBy]
	if !ok {
		column = "submitted_at"
	}
	desc := strings.ToLower(sortOrder) != "asc"

	total, err := repo.CountKYCSubmissions(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.KYCSubmission{}, 0, nil
	}
	items, err := repo.ListKYCSubmissionsPage(ctx, s.DB, status, column, desc, offset, limit)
	return items, total, err
}

// Accept transitions a pending submission to accepted.
func (s *KYCService) Accept(ctx context.Context, id string) (*domain.KYCSubmission, error) {
	return s.decide(ctx, id, domain.KYCStatusAccepted, "")
}

// Reject transitions a pending submission to rejected with a mandatory
// non-empty reason.
func (s *KYCService) Reject(ctx context.Context, id, reason string) (*domain.KYCSubmission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.decide(ctx, id, domain.KYCStatusRejected, reason)
}

// decide loads a submission, enforces the pending precondition, and applies
// the terminal status. Malformed ids are reported as not-found.
func (s *KYCService) decide(ctx context.Context, id, status, reason string) (*domain.KYCSubmission, error) {
	tr := otel.Tracer("services/KYCService")
	ctx, span := tr.Start(ctx, "decide",
		trace.WithAttributes(
			attribute.String("kyc.id", id),
			attribute.String("kyc.status", status),
		),
	)
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSubmissionNotFound
	}
	sub, err := repo.GetKYCSubmission(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	if sub.Status != domain.KYCStatusPending {
		return nil, ErrAlreadyDecided
	}
	if err := repo.SetKYCStatus(ctx, s.DB, id, status, reason); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return repo.GetKYCSubmission(ctx, s.DB, id)
}
