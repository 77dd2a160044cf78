// Package services – AccountService
//
// This file implements AccountService, the application-level component that
// owns user registration, login, and profile lifecycle. It normalizes and
// validates input, enforces case-insensitive username/email uniqueness,
// hashes credentials, issues bearer tokens, and manages the profile photo
// attachment (write-new-then-delete-old, cleanup is best-effort).
//
// Observability: the write paths are OpenTelemetry-instrumented; spans carry
// the account identifier.
package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/auth"
	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/repo"
	"github.com/tbourn/go-admin-backend/internal/storage"
)

// Upload is a file attachment handed down from the HTTP layer: a content
// stream plus the original extension (with leading dot).
type Upload struct {
	Reader io.Reader
	Ext    string
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	FullName string
	Username string
	Email    string
	Password string
	Phone    string
	Address  string
}

// ProfileUpdate carries the mutable profile fields. Nil pointers leave the
// stored value untouched.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	Address  *string
}

// AccountService provides registration, authentication, and profile
// operations for application users.
type AccountService struct {
	// DB is the GORM handle for the primary database.
	DB *gorm.DB
	// Tokens signs and validates bearer tokens.
	Tokens *auth.TokenIssuer
	// Files stores profile photos.
	Files *storage.FileStore
	// PublicBaseURL is the externally visible address used to derive photo URLs.
	PublicBaseURL string
}

// Register creates a new account. Username and email are lowercased so the
// unique indexes enforce case-insensitive uniqueness; the password is stored
// only as a bcrypt hash.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "Register")
	defer span.End()

	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.FullName == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	taken, err := repo.AccountTaken(ctx, s.DB, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateAccount
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	a := &domain.Account{
		FullName:     in.FullName,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
	}
	if err := repo.CreateAccount(ctx, s.DB, a); err != nil {
		// The unique indexes are the last line of defense against a racing
		// registration with the same username/email.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(low, "unique constraint failed") {
			return nil, ErrDuplicateAccount
		}
		return nil, err
	}
	return a, nil
}

// Login authenticates by email and password and returns a signed bearer
// token plus the account. Any mismatch, including an unknown email, yields
// the same ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}
	a, err := repo.GetAccountByEmail(ctx, s.DB, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.Tokens.Issue(a.ID, a.Username)
	if err != nil {
		return "", nil, err
	}
	return token, a, nil
}

// Get returns the account by id, or ErrAccountNotFound.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	a, err := repo.GetAccount(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	return a, err
}

// UpdateProfile applies the provided fields and, when photo is non-nil,
// stores the new photo before dropping the old file. A failing delete of the
// old file is logged and ignored so the profile update never loses data.
func (s *AccountService) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate, photo *Upload) (*domain.Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "UpdateProfile",
		trace.WithAttributes(attribute.String("account.id", id)),
	)
	defer span.End()

	a, err := repo.GetAccount(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if upd.FullName != nil {
		a.FullName = strings.TrimSpace(*upd.FullName)
	}
	if upd.Phone != nil {
		a.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Address != nil {
		a.Address = strings.TrimSpace(*upd.Address)
	}

	oldPhoto := ""
	if photo != nil {
		name, err := s.Files.Save(photo.Reader, photo.Ext)
		if err != nil {
			return nil, err
		}
		oldPhoto = a.PhotoName
		a.PhotoName = name
		a.PhotoURL = fileURL(s.PublicBaseURL, name)
	}

	if err := repo.SaveAccount(ctx, s.DB, a); err != nil {
		if photo != nil {
			s.removeFile(a.PhotoName)
		}
		return nil, err
	}
	if oldPhoto != "" {
		s.removeFile(oldPhoto)
	}
	return a, nil
}

// Delete removes the account, its conversations, and its photo file. File
// cleanup is best-effort.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("account.id", id)),
	)
	defer span.End()

	a, err := repo.GetAccount(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if err := repo.DeleteConversationsByAccount(ctx, s.DB, id); err != nil {
		return err
	}
	if err := repo.DeleteAccount(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	s.removeFile(a.PhotoName)
	return nil
}

// ListPage returns a page of accounts matching the search term together with
// the total count. Admin gating happens at the handler layer.
func (s *AccountService) ListPage(ctx context.Context, page, limit int, search string) ([]domain.Account, int64, error) {
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

	search = foldSearch(search)
	total, err := repo.CountAccounts(ctx, s.DB, search)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Account{}, 0, nil
	}
	items, err := repo.ListAccountsPage(ctx, s.DB, search, "created_at", true, offset, limit)
	return items, total, err
}

// removeFile drops a stored file, logging (not escalating) failures.
func (s *AccountService) removeFile(name string) {
	if name == "" || s.Files == nil {
		return
	}
	if err := s.Files.Remove(name); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("file cleanup failed")
	}
}

// fileURL derives the public link for a stored file name.
func fileURL(base, name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/uploads/" + name
}
