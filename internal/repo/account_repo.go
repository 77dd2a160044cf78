// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an account is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for consistency across the service
// layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateAccount inserts a new Account row. The caller provides already
// normalized (lowercased/trimmed) fields and the password hash; the id and
// UTC creation timestamp are set here.
func CreateAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(a).Error
}

// GetAccount fetches an account by id, or ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByEmail fetches an account by its (lowercased) email address.
func GetAccountByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountTaken reports whether an account with the given username or email
// already exists. Both arguments must be lowercased by the caller.
func AccountTaken(ctx context.Context, db *gorm.DB, username, email string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("username = ? OR email = ?", username, email).
		Count(&n).Error
	return n > 0, err
}

// SaveAccount persists all fields of an already-loaded account row.
func SaveAccount(ctx context.Context, db *gorm.DB, a *domain.Account) error {
	return db.WithContext(ctx).Save(a).Error
}

// DeleteAccount removes an account row by id. Returns ErrNotFound when no
// row was deleted.
func DeleteAccount(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// accountSearchScope composes the case-insensitive substring filter used by
// account listings. search must already be case-folded by the caller; an
// empty search matches everything.
func accountSearchScope(search string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if search == "" {
			return q
		}
		needle := "%" + search + "%"
		return q.Where(
			"LOWER(full_name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(phone) LIKE ?",
			needle, needle, needle, needle,
		)
	}
}

// CountAccounts returns the number of accounts matching the search filter.
func CountAccounts(ctx context.Context, db *gorm.DB, search string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Scopes(accountSearchScope(search)).
		Count(&total).Error
	return total, err
}

// ListAccountsPage returns a page of accounts matching the search filter,
// ordered by the provided (already whitelisted) column.
func ListAccountsPage(ctx context.Context, db *gorm.DB, search, orderBy string, desc bool, offset, limit int) ([]domain.Account, error) {
	if orderBy == "" {
		orderBy = "created_at"
	}
	dir := " asc"
	if desc {
		dir = " desc"
	}
	var out []domain.Account
	err := db.WithContext(ctx).
		Scopes(accountSearchScope(search)).
		Order(orderBy + dir).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountAccountsFiltered and ListAccountsFiltered extend the admin listing
// with the directory's role filter (admin/user maps onto the is_admin flag).
func directoryAccountScope(search, role string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Scopes(accountSearchScope(search))
		switch role {
		case "admin":
			q = q.Where("is_admin = ?", true)
		case "user":
			q = q.Where("is_admin = ?", false)
		}
		return q
	}
}

// CountAccountsFiltered returns the number of accounts matching search + role.
func CountAccountsFiltered(ctx context.Context, db *gorm.DB, search, role string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Account{}).
		Scopes(directoryAccountScope(search, role)).
		Count(&total).Error
	return total, err
}

// ListAccountsFiltered returns a page of accounts matching search + role.
func ListAccountsFiltered(ctx context.Context, db *gorm.DB, search, role, orderBy string, desc bool, offset, limit int) ([]domain.Account, error) {
	if orderBy == "" {
		orderBy = "created_at"
	}
	dir := " asc"
	if desc {
		dir = " desc"
	}
	var out []domain.Account
	err := db.WithContext(ctx).
		Scopes(directoryAccountScope(search, role)).
		Order(orderBy + dir).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateAccountFields applies a whitelisted partial update. Returns
// ErrNotFound when the account does not exist.
func UpdateAccountFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Account, error) {
	if len(fields) > 0 {
		res := db.WithContext(ctx).
			Model(&domain.Account{}).
			Where("id = ?", id).
			Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return GetAccount(ctx, db, id)
}
