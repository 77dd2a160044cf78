package repo

import (
	"context"
	"testing"
	"time"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"gorm.io/gorm"
)

func seedLawyer(t *testing.T, db *gorm.DB, l domain.Lawyer) {
	t.Helper()
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("seed lawyer %s: %v", l.ID, err)
	}
}

func TestListLawyersPage_SearchFields(t *testing.T) {
	db := newRepoDB(t, &domain.Lawyer{})

	seedLawyer(t, db, domain.Lawyer{
		ID: "l1", Name: "Maria Papadaki", Email: "maria@example.com",
		Phone: "210-555-0101", OfficeAddress: "12 Syntagma Square",
		PracticeAreas: []string{"Family Law", "Civil Law"},
		Bio:           "Experienced litigator",
	})
	seedLawyer(t, db, domain.Lawyer{
		ID: "l2", Name: "Nikos Ioannou", Email: "nikos@example.com",
		OfficeAddress: "5 Harbor Street",
		PracticeAreas: []string{"Maritime Law"},
	})

	cases := []struct {
		search string
		want   []string
	}{
		{"maria", []string{"l1"}},
		{"harbor", []string{"l2"}},
		{"family", []string{"l1"}},       // matches practice areas
		{"example.com", []string{"l1", "l2"}},
		{"litigator", nil},               // bio is not searched
	}
	for _, c := range cases {
		out, err := ListLawyersPage(context.Background(), db, c.search, "", 0, "name", false, 0, 10)
		if err != nil {
			t.Fatalf("search %q: %v", c.search, err)
		}
		if len(out) != len(c.want) {
			t.Errorf("search %q returned %d rows; want %d", c.search, len(out), len(c.want))
			continue
		}
		for i, id := range c.want {
			if out[i].ID != id {
				t.Errorf("search %q row %d = %s; want %s", c.search, i, out[i].ID, id)
			}
		}
	}
}

func TestListLawyersPage_RoleAndExperienceFilters(t *testing.T) {
	db := newRepoDB(t, &domain.Lawyer{})

	seedLawyer(t, db, domain.Lawyer{ID: "jr", Role: "associate", ExperienceYears: 2})
	seedLawyer(t, db, domain.Lawyer{ID: "sr", Role: "partner", ExperienceYears: 15})
	seedLawyer(t, db, domain.Lawyer{ID: "mid", Role: "associate", ExperienceYears: 8})

	partners, err := ListLawyersPage(context.Background(), db, "", "partner", 0, "created_at", true, 0, 10)
	if err != nil || len(partners) != 1 || partners[0].ID != "sr" {
		t.Fatalf("role filter: got %+v, %v", partners, err)
	}

	seniors, err := ListLawyersPage(context.Background(), db, "", "", 5, "experience_years", true, 0, 10)
	if err != nil {
		t.Fatalf("experience filter: %v", err)
	}
	if len(seniors) != 2 || seniors[0].ID != "sr" || seniors[1].ID != "mid" {
		t.Fatalf("experience filter order: %+v", seniors)
	}

	both, err := CountLawyers(context.Background(), db, "", "associate", 5)
	if err != nil || both != 1 {
		t.Fatalf("CountLawyers(role+exp) = %d, %v; want 1, nil", both, err)
	}
}

func TestUpdateLawyerFields(t *testing.T) {
	db := newRepoDB(t, &domain.Lawyer{})
	seedLawyer(t, db, domain.Lawyer{ID: "l1", Name: "Old Name"})

	got, err := UpdateLawyerFields(context.Background(), db, "l1", map[string]any{"name": "New Name"})
	if err != nil {
		t.Fatalf("UpdateLawyerFields: %v", err)
	}
	if got.Name != "New Name" {
		t.Fatalf("name = %q; want New Name", got.Name)
	}

	if _, err := UpdateLawyerFields(context.Background(), db, "missing", map[string]any{"name": "x"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteLawyer_RemovesKYCSubmissions(t *testing.T) {
	db := newRepoDB(t, &domain.Lawyer{}, &domain.KYCSubmission{})

	seedLawyer(t, db, domain.Lawyer{ID: "l1", Name: "N"})
	sub := domain.KYCSubmission{ID: "k1", LawyerID: "l1", Status: domain.KYCStatusPending, SubmittedAt: time.Now().UTC()}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("seed submission: %v", err)
	}

	if err := DeleteLawyer(context.Background(), db, "l1"); err != nil {
		t.Fatalf("DeleteLawyer: %v", err)
	}
	if _, err := GetKYCSubmission(context.Background(), db, "k1"); err == nil {
		t.Fatalf("submission should be gone with its lawyer")
	}

	if err := DeleteLawyer(context.Background(), db, "l1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
