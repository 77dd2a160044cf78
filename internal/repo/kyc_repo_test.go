package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"gorm.io/gorm"
)

func seedSubmission(t *testing.T, db *gorm.DB, s domain.KYCSubmission) {
	t.Helper()
	if s.Status == "" {
		s.Status = domain.KYCStatusPending
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("seed submission %s: %v", s.ID, err)
	}
}

func TestListKYCSubmissionsPage_StatusFilterAndOrder(t *testing.T) {
	db := newRepoDB(t, &domain.KYCSubmission{})

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	seedSubmission(t, db, domain.KYCSubmission{ID: "k1", LawyerID: "l1", SubmittedAt: base})
	seedSubmission(t, db, domain.KYCSubmission{ID: "k2", LawyerID: "l2", SubmittedAt: base.Add(time.Hour)})
	seedSubmission(t, db, domain.KYCSubmission{ID: "k3", LawyerID: "l3", Status: domain.KYCStatusAccepted, SubmittedAt: base.Add(2 * time.Hour)})

	// All statuses, newest submission first.
	all, err := ListKYCSubmissionsPage(context.Background(), db, "", "submitted_at", true, 0, 10)
	if err != nil {
		t.Fatalf("ListKYCSubmissionsPage: %v", err)
	}
	if len(all) != 3 || all[0].ID != "k3" || all[2].ID != "k1" {
		t.Fatalf("unexpected order: %+v", all)
	}

	// Pending only.
	pending, err := ListKYCSubmissionsPage(context.Background(), db, domain.KYCStatusPending, "submitted_at", true, 0, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending filter: got %d, %v; want 2, nil", len(pending), err)
	}

	n, err := CountKYCSubmissions(context.Background(), db, domain.KYCStatusAccepted)
	if err != nil || n != 1 {
		t.Fatalf("CountKYCSubmissions(accepted) = %d, %v; want 1, nil", n, err)
	}
}

func TestGetKYCSubmissionByLawyer_MostRecent(t *testing.T) {
	db := newRepoDB(t, &domain.KYCSubmission{})

	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	seedSubmission(t, db, domain.KYCSubmission{ID: "old", LawyerID: "l1", SubmittedAt: base})
	seedSubmission(t, db, domain.KYCSubmission{ID: "new", LawyerID: "l1", SubmittedAt: base.Add(time.Hour)})

	got, err := GetKYCSubmissionByLawyer(context.Background(), db, "l1")
	if err != nil {
		t.Fatalf("GetKYCSubmissionByLawyer: %v", err)
	}
	if got.ID != "new" {
		t.Fatalf("expected most recent submission, got %s", got.ID)
	}

	if _, err := GetKYCSubmissionByLawyer(context.Background(), db, "nobody"); err == nil {
		t.Fatalf("expected error for unknown lawyer")
	}
}

func TestSetKYCStatus(t *testing.T) {
	db := newRepoDB(t, &domain.KYCSubmission{})
	seedSubmission(t, db, domain.KYCSubmission{ID: "k1", LawyerID: "l1", SubmittedAt: time.Now().UTC()})

	if err := SetKYCStatus(context.Background(), db, "k1", domain.KYCStatusRejected, "document unreadable"); err != nil {
		t.Fatalf("SetKYCStatus: %v", err)
	}
	got, err := GetKYCSubmission(context.Background(), db, "k1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.KYCStatusRejected || got.RejectionReason != "document unreadable" {
		t.Fatalf("unexpected submission after transition: %+v", got)
	}

	if err := SetKYCStatus(context.Background(), db, "missing", domain.KYCStatusAccepted, ""); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
