package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/services"
)

// ---------- flexible service fakes ----------

// fakeAccountSvc implements AccountService with overridable behavior. The
// zero value answers every call successfully with canned data.
type fakeAccountSvc struct {
	register func(context.Context, services.RegisterInput) (*domain.Account, error)
	login    func(context.Context, string, string) (string, *domain.Account, error)
	get      func(context.Context, string) (*domain.Account, error)
	update   func(context.Context, string, services.ProfileUpdate, *services.Upload) (*domain.Account, error)
	delete   func(context.Context, string) error
	listPage func(context.Context, int, int, string) ([]domain.Account, int64, error)
}

func (f *fakeAccountSvc) Register(ctx context.Context, in services.RegisterInput) (*domain.Account, error) {
	if f.register != nil {
		return f.register(ctx, in)
	}
	return &domain.Account{ID: "a1", Username: in.Username, Email: in.Email, FullName: in.FullName}, nil
}

func (f *fakeAccountSvc) Login(ctx context.Context, email, password string) (string, *domain.Account, error) {
	if f.login != nil {
		return f.login(ctx, email, password)
	}
	return "tok", &domain.Account{ID: "a1", Email: email}, nil
}

func (f *fakeAccountSvc) Get(ctx context.Context, id string) (*domain.Account, error) {
	if f.get != nil {
		return f.get(ctx, id)
	}
	return &domain.Account{ID: id}, nil
}

func (f *fakeAccountSvc) UpdateProfile(ctx context.Context, id string, upd services.ProfileUpdate, photo *services.Upload) (*domain.Account, error) {
	if f.update != nil {
		return f.update(ctx, id, upd, photo)
	}
	return &domain.Account{ID: id}, nil
}

func (f *fakeAccountSvc) Delete(ctx context.Context, id string) error {
	if f.delete != nil {
		return f.delete(ctx, id)
	}
	return nil
}

func (f *fakeAccountSvc) ListPage(ctx context.Context, page, limit int, search string) ([]domain.Account, int64, error) {
	if f.listPage != nil {
		return f.listPage(ctx, page, limit, search)
	}
	return []domain.Account{}, 0, nil
}

// adminAccountSvc is a fakeAccountSvc whose Get always reports an admin, so
// admin-gated handlers can be exercised.
func adminAccountSvc() *fakeAccountSvc {
	return &fakeAccountSvc{
		get: func(_ context.Context, id string) (*domain.Account, error) {
			return &domain.Account{ID: id, IsAdmin: true}, nil
		},
	}
}

// ---------- no-op stubs for the other services ----------

type stubBookSvc struct{}

func (stubBookSvc) Create(context.Context, string, string, string, *services.Upload, *services.Upload) (*domain.Book, error) {
	return &domain.Book{}, nil
}
func (stubBookSvc) List(context.Context) ([]domain.Book, error)       { return nil, nil }
func (stubBookSvc) Get(context.Context, string) (*domain.Book, error) { return &domain.Book{}, nil }
func (stubBookSvc) Update(context.Context, string, services.BookUpdate, *services.Upload, *services.Upload) (*domain.Book, error) {
	return &domain.Book{}, nil
}
func (stubBookSvc) Delete(context.Context, string) error { return nil }

type stubConvSvc struct{}

func (stubConvSvc) Create(context.Context, string, string) (*domain.Conversation, error) {
	return &domain.Conversation{}, nil
}
func (stubConvSvc) ListPage(context.Context, string, int, int) ([]domain.Conversation, int64, error) {
	return nil, 0, nil
}
func (stubConvSvc) Get(context.Context, string, string) (*domain.Conversation, error) {
	return &domain.Conversation{}, nil
}
func (stubConvSvc) PostTurn(context.Context, string, string, string) (string, *domain.Conversation, error) {
	return "", &domain.Conversation{}, nil
}
func (stubConvSvc) CreateWithFirstTurn(context.Context, string, string) (string, *domain.Conversation, error) {
	return "", &domain.Conversation{}, nil
}
func (stubConvSvc) EditTurn(context.Context, string, string, string, string) (*domain.Turn, error) {
	return &domain.Turn{}, nil
}
func (stubConvSvc) Delete(context.Context, string, string) error { return nil }

type stubDirSvc struct{}

func (stubDirSvc) ListAccounts(context.Context, services.ListQuery) ([]domain.Account, int64, error) {
	return nil, 0, nil
}
func (stubDirSvc) UpdateAccount(context.Context, string, services.AccountDirectoryUpdate) (*domain.Account, error) {
	return &domain.Account{}, nil
}
func (stubDirSvc) DeleteAccount(context.Context, string) error { return nil }
func (stubDirSvc) ListLawyers(context.Context, services.ListQuery) ([]domain.Lawyer, int64, error) {
	return nil, 0, nil
}
func (stubDirSvc) GetLawyer(context.Context, string) (*domain.Lawyer, error) {
	return &domain.Lawyer{}, nil
}
func (stubDirSvc) UpdateLawyer(context.Context, string, services.LawyerUpdate) (*domain.Lawyer, error) {
	return &domain.Lawyer{}, nil
}
func (stubDirSvc) DeleteLawyer(context.Context, string) error { return nil }

// newTestHandlers binds a Handlers aggregate with the given account service
// and no-op stubs for everything else.
func newTestHandlers(acc AccountService) *Handlers {
	return New(acc, stubBookSvc{}, stubConvSvc{}, stubDirSvc{}, nil)
}

// ---------- Register / Login ----------

func TestRegister_BadJSON_Success_Conflict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON -> 400
	{
		h := newTestHandlers(&fakeAccountSvc{})
		r := gin.New()
		r.POST("/accounts", h.Register)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{bad"))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad json -> %d", w.Code)
		}
	}

	// Success -> 201
	{
		h := newTestHandlers(&fakeAccountSvc{})
		r := gin.New()
		r.POST("/accounts", h.Register)

		body := `{"fullName":"Ada Lovelace","username":"ada","email":"ada@example.com","password":"secret1"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(body))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("register -> %d body=%s", w.Code, w.Body.String())
		}
		var out domain.Account
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Username != "ada" {
			t.Fatalf("unexpected account: %#v", out)
		}
	}

	// Duplicate -> 409
	{
		h := newTestHandlers(&fakeAccountSvc{
			register: func(context.Context, services.RegisterInput) (*domain.Account, error) {
				return nil, services.ErrDuplicateAccount
			},
		})
		r := gin.New()
		r.POST("/accounts", h.Register)

		body := `{"fullName":"A","username":"ada","email":"ada@example.com","password":"secret1"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(body))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusConflict {
			t.Fatalf("duplicate -> %d", w.Code)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != ErrCodeConflict {
			t.Fatalf("error envelope: %s (%v)", w.Body.String(), err)
		}
	}
}

func TestLogin_InvalidCredentials_And_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	{
		h := newTestHandlers(&fakeAccountSvc{
			login: func(context.Context, string, string) (string, *domain.Account, error) {
				return "", nil, services.ErrInvalidCredentials
			},
		})
		r := gin.New()
		r.POST("/sessions", h.Login)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(`{"email":"a@b.c","password":"x"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("bad creds -> %d", w.Code)
		}
	}

	{
		h := newTestHandlers(&fakeAccountSvc{})
		r := gin.New()
		r.POST("/sessions", h.Login)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(`{"email":"a@b.c","password":"x"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("login -> %d body=%s", w.Code, w.Body.String())
		}
		var out LoginResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Token != "tok" {
			t.Fatalf("unexpected login response: %s (%v)", w.Body.String(), err)
		}
	}
}

// ---------- me endpoints ----------

func TestGetMe_NotFound_And_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	{
		h := newTestHandlers(&fakeAccountSvc{
			get: func(context.Context, string) (*domain.Account, error) {
				return nil, services.ErrAccountNotFound
			},
		})
		r := gin.New()
		r.GET("/accounts/me", h.GetMe)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("missing account -> %d", w.Code)
		}
	}

	{
		h := newTestHandlers(&fakeAccountSvc{})
		r := gin.New()
		r.GET("/accounts/me", h.GetMe)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("me -> %d", w.Code)
		}
		var out domain.Account
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.ID != "u1" {
			t.Fatalf("unexpected account: %s (%v)", w.Body.String(), err)
		}
	}
}

func TestUpdateMe_JSONBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotUpd services.ProfileUpdate
	h := newTestHandlers(&fakeAccountSvc{
		update: func(_ context.Context, id string, upd services.ProfileUpdate, _ *services.Upload) (*domain.Account, error) {
			gotUpd = upd
			return &domain.Account{ID: id, FullName: *upd.FullName}, nil
		},
	})
	r := gin.New()
	r.PUT("/accounts/me", h.UpdateMe)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/accounts/me", bytes.NewBufferString(`{"fullName":"New Name"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update -> %d body=%s", w.Code, w.Body.String())
	}
	if gotUpd.FullName == nil || *gotUpd.FullName != "New Name" {
		t.Fatalf("fullName not forwarded: %+v", gotUpd)
	}
	if gotUpd.Phone != nil {
		t.Fatalf("absent field must stay nil")
	}
}

func TestDeleteMe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newTestHandlers(&fakeAccountSvc{})
	r := gin.New()
	r.DELETE("/accounts/me", h.DeleteMe)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/accounts/me", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}
}

// ---------- admin listing ----------

func TestListAccounts_AdminGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Non-admin -> 403
	{
		h := newTestHandlers(&fakeAccountSvc{})
		r := gin.New()
		r.GET("/accounts", h.ListAccounts)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("non-admin -> %d", w.Code)
		}
	}

	// Admin -> 200 with envelope
	{
		acc := adminAccountSvc()
		acc.listPage = func(_ context.Context, page, limit int, search string) ([]domain.Account, int64, error) {
			return []domain.Account{{ID: "a1"}}, 41, nil
		}
		h := newTestHandlers(acc)
		r := gin.New()
		r.GET("/accounts", h.ListAccounts)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts?page=2&limit=20", nil)
		req.Header.Set("X-User-ID", "admin")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("admin list -> %d body=%s", w.Code, w.Body.String())
		}
		var out ListAccountsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Pagination.Page != 2 || out.Pagination.Total != 41 || out.Pagination.Pages != 3 {
			t.Fatalf("pagination envelope: %+v", out.Pagination)
		}
	}
}

func TestGetAccount_SelfAliasAndAdminGate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// "me" resolves to the requester without an admin check.
	{
		h := newTestHandlers(&fakeAccountSvc{})
		r := gin.New()
		r.GET("/accounts/:id", h.GetAccount)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("me alias -> %d", w.Code)
		}
	}

	// Foreign id requires admin.
	{
		h := newTestHandlers(&fakeAccountSvc{})
		r := gin.New()
		r.GET("/accounts/:id", h.GetAccount)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts/other", nil)
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("foreign non-admin -> %d", w.Code)
		}
	}

	// Admin may read any account.
	{
		h := newTestHandlers(adminAccountSvc())
		r := gin.New()
		r.GET("/accounts/:id", h.GetAccount)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts/other", nil)
		req.Header.Set("X-User-ID", "admin")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("admin read -> %d", w.Code)
		}
	}
}
