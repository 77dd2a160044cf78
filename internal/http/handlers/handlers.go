// Handler wiring.
//
// This file declares the service contracts consumed by the HTTP layer and the
// Handlers aggregate that binds them. Handlers are transport-thin: they
// validate input, call application services, and translate results into HTTP
// responses. Business rules (ownership, uniqueness, file replacement order)
// live in the services package.
package handlers

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AccountService defines the account lifecycle operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// Register creates a new account from the given input.
	Register(ctx context.Context, in services.RegisterInput) (*domain.Account, error)
	// Login verifies credentials and returns a bearer token plus the account.
	Login(ctx context.Context, email, password string) (string, *domain.Account, error)
	// Get fetches an account by id.
	Get(ctx context.Context, id string) (*domain.Account, error)
	// UpdateProfile applies profile fields and an optional new photo.
	UpdateProfile(ctx context.Context, id string, upd services.ProfileUpdate, photo *services.Upload) (*domain.Account, error)
	// Delete removes the account, its conversations, and its photo.
	Delete(ctx context.Context, id string) error
	// ListPage returns a page of accounts and the total count.
	ListPage(ctx context.Context, page, limit int, search string) ([]domain.Account, int64, error)
}

// BookService defines the catalog operations consumed by HTTP handlers.
type BookService interface {
	Create(ctx context.Context, title, author, description string, pdf, poster *services.Upload) (*domain.Book, error)
	List(ctx context.Context) ([]domain.Book, error)
	Get(ctx context.Context, id string) (*domain.Book, error)
	Update(ctx context.Context, id string, upd services.BookUpdate, pdf, poster *services.Upload) (*domain.Book, error)
	Delete(ctx context.Context, id string) error
}

// ConversationService defines the chat operations consumed by HTTP handlers.
type ConversationService interface {
	Create(ctx context.Context, accountID, title string) (*domain.Conversation, error)
	ListPage(ctx context.Context, accountID string, page, limit int) ([]domain.Conversation, int64, error)
	Get(ctx context.Context, accountID, id string) (*domain.Conversation, error)
	PostTurn(ctx context.Context, accountID, conversationID, text string) (string, *domain.Conversation, error)
	CreateWithFirstTurn(ctx context.Context, accountID, text string) (string, *domain.Conversation, error)
	EditTurn(ctx context.Context, accountID, conversationID, turnID, text string) (*domain.Turn, error)
	Delete(ctx context.Context, accountID, id string) error
}

// DirectoryService defines the admin browsing/editing operations consumed by
// HTTP handlers.
type DirectoryService interface {
	ListAccounts(ctx context.Context, q services.ListQuery) ([]domain.Account, int64, error)
	UpdateAccount(ctx context.Context, id string, upd services.AccountDirectoryUpdate) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	ListLawyers(ctx context.Context, q services.ListQuery) ([]domain.Lawyer, int64, error)
	GetLawyer(ctx context.Context, id string) (*domain.Lawyer, error)
	UpdateLawyer(ctx context.Context, id string, upd services.LawyerUpdate) (*domain.Lawyer, error)
	DeleteLawyer(ctx context.Context, id string) error
}

// KYCService defines the verification-review operations consumed by HTTP
// handlers.
type KYCService interface {
	ListPage(ctx context.Context, page, limit int, status, sortBy, sortOrder string) ([]domain.KYCSubmission, int64, error)
	Accept(ctx context.Context, id string) (*domain.KYCSubmission, error)
	Reject(ctx context.Context, id, reason string) (*domain.KYCSubmission, error)
}

//
// Handlers aggregate
//

// Handlers groups the HTTP endpoints for all services. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	accountSvc AccountService
	bookSvc    BookService
	convSvc    ConversationService
	dirSvc     DirectoryService
	kycSvc     KYCService
}

// New constructs a Handlers instance bound to the given services. kycSvc may
// be nil when the KYC surface is not mounted.
func New(accountSvc AccountService, bookSvc BookService, convSvc ConversationService, dirSvc DirectoryService, kycSvc KYCService) *Handlers {
	return &Handlers{
		accountSvc: accountSvc,
		bookSvc:    bookSvc,
		convSvc:    convSvc,
		dirSvc:     dirSvc,
		kycSvc:     kycSvc,
	}
}

// accountID extracts the authenticated account id from Gin context (set by
// the auth middleware). If absent, it falls back to "X-User-ID" header
// (tests use it). It never touches c.Request if it's nil.
func accountID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// Multipart helpers
//

// openUpload opens a multipart file as a service Upload. The returned close
// function must be called after the service consumed the stream.
func openUpload(fh *multipart.FileHeader) (*services.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	up := &services.Upload{
		Reader: f,
		Ext:    strings.ToLower(filepath.Ext(fh.Filename)),
	}
	return up, func() { f.Close() }, nil
}

// isPDF reports whether an uploaded part looks like a PDF (by declared
// content type, falling back to the file extension).
func isPDF(fh *multipart.FileHeader) bool {
	ct := strings.ToLower(fh.Header.Get("Content-Type"))
	if ct != "" && ct != "application/octet-stream" {
		return ct == "application/pdf"
	}
	return strings.EqualFold(filepath.Ext(fh.Filename), ".pdf")
}

// isImage reports whether an uploaded part looks like an image (by declared
// content type, falling back to the file extension).
func isImage(fh *multipart.FileHeader) bool {
	ct := strings.ToLower(fh.Header.Get("Content-Type"))
	if ct != "" && ct != "application/octet-stream" {
		return strings.HasPrefix(ct, "image/")
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}
