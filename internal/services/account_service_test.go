package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-admin-backend/internal/auth"
	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/storage"
)

// newServiceDB opens a throwaway SQLite database and migrates the given
// models. Shared by all service tests in this package.
func newServiceDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "svc.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

func newFileStore(t *testing.T) *storage.FileStore {
	t.Helper()
	fs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return fs
}

func newAccountService(t *testing.T) *AccountService {
	t.Helper()
	return &AccountService{
		DB:            newServiceDB(t, &domain.Account{}, &domain.Conversation{}, &domain.Turn{}),
		Tokens:        auth.NewTokenIssuer("test-secret", time.Hour),
		Files:         newFileStore(t),
		PublicBaseURL: "http://localhost:8080",
	}
}

func TestAccountRegister_NormalizesAndHashes(t *testing.T) {
	svc := newAccountService(t)

	a, err := svc.Register(context.Background(), RegisterInput{
		FullName: "  Ada Lovelace  ",
		Username: "  ADA ",
		Email:    " Ada@Example.COM ",
		Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if a.Username != "ada" || a.Email != "ada@example.com" || a.FullName != "Ada Lovelace" {
		t.Fatalf("normalization failed: %+v", a)
	}
	if a.PasswordHash == "" || a.PasswordHash == "s3cret" {
		t.Fatalf("password stored in the clear")
	}
}

func TestAccountRegister_MissingFields(t *testing.T) {
	svc := newAccountService(t)

	_, err := svc.Register(context.Background(), RegisterInput{Username: "x", Email: "x@y.z", Password: "p"})
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
}

func TestAccountRegister_DuplicateCaseInsensitive(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()

	in := RegisterInput{FullName: "A", Username: "ada", Email: "ada@example.com", Password: "p"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	in.Email = "other@example.com"
	in.Username = "ADA"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount for username, got %v", err)
	}

	in.Username = "other"
	in.Email = "ADA@EXAMPLE.COM"
	if _, err := svc.Register(ctx, in); !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount for email, got %v", err)
	}
}

func TestAccountLogin(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{FullName: "A", Username: "ada", Email: "ada@example.com", Password: "s3cret"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, a, err := svc.Login(ctx, " ADA@example.com ", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || a.Username != "ada" {
		t.Fatalf("unexpected login result: token=%q account=%+v", token, a)
	}

	// Unknown email and wrong password fail identically.
	if _, _, err := svc.Login(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountUpdateProfile_PhotoReplacement(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{FullName: "A", Username: "ada", Email: "ada@example.com", Password: "p"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	first, err := svc.UpdateProfile(ctx, a.ID, ProfileUpdate{}, &Upload{Reader: strings.NewReader("photo-1"), Ext: ".png"})
	if err != nil {
		t.Fatalf("first UpdateProfile: %v", err)
	}
	if first.PhotoName == "" || !svc.Files.Exists(first.PhotoName) {
		t.Fatalf("photo not stored: %+v", first)
	}
	if !strings.HasSuffix(first.PhotoURL, "/uploads/"+first.PhotoName) {
		t.Fatalf("photo URL = %q", first.PhotoURL)
	}

	// Replacing the photo removes the superseded file.
	second, err := svc.UpdateProfile(ctx, a.ID, ProfileUpdate{}, &Upload{Reader: strings.NewReader("photo-2"), Ext: ".png"})
	if err != nil {
		t.Fatalf("second UpdateProfile: %v", err)
	}
	if second.PhotoName == first.PhotoName {
		t.Fatalf("photo name not rotated")
	}
	if svc.Files.Exists(first.PhotoName) {
		t.Fatalf("old photo file should be deleted")
	}
	if !svc.Files.Exists(second.PhotoName) {
		t.Fatalf("new photo file missing")
	}
}

func TestAccountUpdateProfile_FieldsAndNotFound(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{FullName: "A", Username: "ada", Email: "ada@example.com", Password: "p"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	name := "  New Name "
	phone := "12345"
	got, err := svc.UpdateProfile(ctx, a.ID, ProfileUpdate{FullName: &name, Phone: &phone}, nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.FullName != "New Name" || got.Phone != "12345" {
		t.Fatalf("fields not applied: %+v", got)
	}

	if _, err := svc.UpdateProfile(ctx, "missing", ProfileUpdate{}, nil); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountDelete_CascadesConversationsAndPhoto(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, RegisterInput{FullName: "A", Username: "ada", Email: "ada@example.com", Password: "p"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.UpdateProfile(ctx, a.ID, ProfileUpdate{}, &Upload{Reader: strings.NewReader("p"), Ext: ".jpg"}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	conv := domain.Conversation{ID: "c1", AccountID: a.ID, Title: "t", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := svc.DB.Create(&conv).Error; err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	if err := svc.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("account should be gone, got %v", err)
	}
	var n int64
	if err := svc.DB.Model(&domain.Conversation{}).Where("account_id = ?", a.ID).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("conversations should be gone: n=%d err=%v", n, err)
	}
	entries, err := os.ReadDir(svc.Files.Dir())
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("photo file should be deleted, found %d entries", len(entries))
	}

	if err := svc.Delete(ctx, a.ID); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("second delete: expected ErrAccountNotFound, got %v", err)
	}
}

func TestAccountListPage_ClampsAndCounts(t *testing.T) {
	svc := newAccountService(t)
	ctx := context.Background()

	for _, u := range []string{"alpha", "beta", "gamma"} {
		if _, err := svc.Register(ctx, RegisterInput{FullName: u, Username: u, Email: u + "@example.com", Password: "p"}); err != nil {
			t.Fatalf("Register %s: %v", u, err)
		}
	}

	// Out-of-range page/limit are clamped rather than rejected.
	items, total, err := svc.ListPage(ctx, 0, -5, "")
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("got %d items, total %d; want 3/3", len(items), total)
	}

	// Search folds case.
	items, total, err = svc.ListPage(ctx, 1, 20, "BETA")
	if err != nil || total != 1 || len(items) != 1 || items[0].Username != "beta" {
		t.Fatalf("search: items=%+v total=%d err=%v", items, total, err)
	}

	// No match returns an empty page, not nil error.
	items, total, err = svc.ListPage(ctx, 1, 20, "zeta")
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty search: items=%+v total=%d err=%v", items, total, err)
	}
}
