// Package services – DirectoryService
//
// This file implements DirectoryService, the administrative browsing/editing
// surface over two record sets: application accounts (primary database) and
// externally-sourced lawyer records (directory database). Both support
// paginated listing with free-text search, whitelisted single-field sorting,
// constrained partial updates, and deletion by id.
//
// Search terms are Unicode case-folded before matching so lookups behave the
// same regardless of letter casing. Sort fields outside the whitelist fall
// back to the creation timestamp rather than being rejected, matching the
// tolerant query-parameter handling of the rest of the API.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/repo"
)

// accountSortColumns whitelists sortable account fields (API name -> column).
var accountSortColumns = map[string]string{
	"createdAt": "created_at",
	"fullName":  "full_name",
	"username":  "username",
	"email":     "email",
	"isAdmin":   "is_admin",
}

// lawyerSortColumns whitelists sortable lawyer fields (API name -> column).
var lawyerSortColumns = map[string]string{
	"createdAt":       "created_at",
	"name":            "name",
	"email":           "email",
	"experienceYears": "experience_years",
	"role":            "role",
}

// ListQuery carries the common listing parameters of the directory endpoints.
type ListQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
	Role      string
	// Experience filters lawyers with at least that many years; <= 0 disables.
	Experience int
}

// AccountDirectoryUpdate carries the account fields editable through the
// directory. Nil pointers leave the stored value untouched.
type AccountDirectoryUpdate struct {
	FullName *string
	Username *string
	Email    *string
	Phone    *string
	IsAdmin  *bool
}

// LawyerUpdate carries the lawyer fields editable through the directory.
// Nil pointers leave the stored value untouched.
type LawyerUpdate struct {
	Name          *string
	Email         *string
	Phone         *string
	Bio           *string
	PracticeAreas *[]string
	OfficeAddress *string
	Role          *string
}

// DirectoryService queries and edits the account and lawyer record sets.
type DirectoryService struct {
	// AppDB is the GORM handle for the primary database (accounts).
	AppDB *gorm.DB
	// DirDB is the GORM handle for the directory database (lawyers).
	DirDB *gorm.DB
	// Accounts handles account deletion so photo and conversation cleanup
	// follow the same path as self-deletion.
	Accounts *AccountService
}

// ListAccounts returns a page of accounts matching search and role filters.
func (s *DirectoryService) ListAccounts(ctx context.Context, q ListQuery) ([]domain.Account, int64, error) {
	tr := otel.Tracer("services/DirectoryService")
	ctx, span := tr.Start(ctx, "ListAccounts",
		trace.WithAttributes(attribute.Int("page", q.Page), attribute.Int("limit", q.Limit)),
	)
	defer span.End()

	_, limit, offset := normalizePaging(q.Page, q.Limit)
	search := foldSearch(q.Search)
	orderBy, desc := resolveSort(accountSortColumns, q.SortBy, q.SortOrder)

	total, err := repo.CountAccountsFiltered(ctx, s.AppDB, search, q.Role)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Account{}, 0, nil
	}
	items, err := repo.ListAccountsFiltered(ctx, s.AppDB, search, q.Role, orderBy, desc, offset, limit)
	return items, total, err
}

// UpdateAccount applies a whitelisted partial update to an account.
func (s *DirectoryService) UpdateAccount(ctx context.Context, id string, upd AccountDirectoryUpdate) (*domain.Account, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if upd.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*upd.FullName)
	}
	if upd.Username != nil {
		fields["username"] = strings.ToLower(strings.TrimSpace(*upd.Username))
	}
	if upd.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Phone != nil {
		fields["phone"] = strings.TrimSpace(*upd.Phone)
	}
	if upd.IsAdmin != nil {
		fields["is_admin"] = *upd.IsAdmin
	}
	a, err := repo.UpdateAccountFields(ctx, s.AppDB, id, fields)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(low, "unique constraint failed") {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	return a, nil
}

// DeleteAccount removes an account through the same cleanup path as
// self-deletion (photo file, owned conversations, record).
func (s *DirectoryService) DeleteAccount(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.Accounts.Delete(ctx, id)
}

// ListLawyers returns a page of lawyer records matching the search, role,
// and minimum-experience filters.
func (s *DirectoryService) ListLawyers(ctx context.Context, q ListQuery) ([]domain.Lawyer, int64, error) {
	tr := otel.Tracer("services/DirectoryService")
	ctx, span := tr.Start(ctx, "ListLawyers",
		trace.WithAttributes(attribute.Int("page", q.Page), attribute.Int("limit", q.Limit)),
	)
	defer span.End()

	_, limit, offset := normalizePaging(q.Page, q.Limit)
	search := foldSearch(q.Search)
	orderBy, desc := resolveSort(lawyerSortColumns, q.SortBy, q.SortOrder)

	total, err := repo.CountLawyers(ctx, s.DirDB, search, q.Role, q.Experience)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Lawyer{}, 0, nil
	}
	items, err := repo.ListLawyersPage(ctx, s.DirDB, search, q.Role, q.Experience, orderBy, desc, offset, limit)
	return items, total, err
}

// GetLawyer returns a lawyer record by id, or ErrLawyerNotFound.
func (s *DirectoryService) GetLawyer(ctx context.Context, id string) (*domain.Lawyer, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	l, err := repo.GetLawyer(ctx, s.DirDB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrLawyerNotFound
	}
	return l, err
}

// UpdateLawyer applies a whitelisted partial update to a lawyer record.
func (s *DirectoryService) UpdateLawyer(ctx context.Context, id string, upd LawyerUpdate) (*domain.Lawyer, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if upd.Name != nil {
		fields["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		fields["email"] = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Phone != nil {
		fields["phone"] = strings.TrimSpace(*upd.Phone)
	}
	if upd.Bio != nil {
		fields["bio"] = strings.TrimSpace(*upd.Bio)
	}
	if upd.PracticeAreas != nil {
		// Map-based updates bypass the model serializer; store the JSON form
		// the column expects.
		raw, err := json.Marshal(*upd.PracticeAreas)
		if err != nil {
			return nil, err
		}
		fields["practice_areas"] = string(raw)
	}
	if upd.OfficeAddress != nil {
		fields["office_address"] = strings.TrimSpace(*upd.OfficeAddress)
	}
	if upd.Role != nil {
		fields["role"] = strings.TrimSpace(*upd.Role)
	}
	l, err := repo.UpdateLawyerFields(ctx, s.DirDB, id, fields)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrLawyerNotFound
	}
	return l, err
}

// DeleteLawyer removes a lawyer record and its KYC submissions.
func (s *DirectoryService) DeleteLawyer(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	err := repo.DeleteLawyer(ctx, s.DirDB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrLawyerNotFound
	}
	return err
}

// validateID rejects malformed record ids before any query runs.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// normalizePaging clamps page/limit and derives the offset. The limit is
// capped at 100.
func normalizePaging(page, limit int) (p, l, offset int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit, (page - 1) * limit
}

// resolveSort maps an API sort field onto its column through the whitelist,
// defaulting to created_at descending.
func resolveSort(whitelist map[string]string, sortBy, sortOrder string) (column string, desc bool) {
	column, ok := whitelist[sortBy]
	if !ok {
		column = "created_at"
	}
	return column, strings.ToLower(sortOrder) != "asc"
}

// searchFolder lowercases search input with full Unicode case folding, so
// matching agrees with SQLite's ASCII-only LOWER for the common case and
// stays stable for folded input.
var searchFolder = cases.Fold()

// foldSearch normalizes a free-text search term for substring matching.
func foldSearch(s string) string {
	return searchFolder.String(strings.TrimSpace(s))
}
