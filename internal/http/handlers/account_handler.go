// Account HTTP handlers.
//
// This file exposes REST endpoints for account resources:
//   - POST   /accounts           (register)
//   - POST   /sessions           (login, issues bearer token)
//   - GET    /accounts/me        (current profile)
//   - PUT    /accounts/me        (update profile, optional photo upload)
//   - DELETE /accounts/me        (self-delete)
//   - GET    /accounts           (admin-only listing)
//   - GET    /accounts/{id}      (self or admin)
//
// Handlers are transport-thin: they validate input, call the account service,
// and translate results into HTTP responses.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/services"
	"github.com/tbourn/go-admin-backend/internal/utils"
)

//
// DTOs
//

// RegisterRequest is the JSON payload for creating an account.
type RegisterRequest struct {
	FullName string `json:"fullName" binding:"required,min=1,max=255" example:"Ada Lovelace"`
	Username string `json:"username" binding:"required,min=1,max=64"  example:"ada"`
	Email    string `json:"email"    binding:"required,email"         example:"ada@example.com"`
	Password string `json:"password" binding:"required,min=6"         example:"correct horse"`
	Phone    string `json:"phone"    example:"+44 20 7946 0000"`
	Address  string `json:"address"  example:"12 Analytical Way"`
}

// LoginRequest is the JSON payload for opening a session.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"correct horse"`
}

// LoginResponse carries the issued bearer token and the account it belongs to.
type LoginResponse struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

// ListAccountsResponse wraps a page of accounts and pagination information.
type ListAccountsResponse struct {
	Items      []domain.Account `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

//
// Handlers
//

// Register godoc
// @ID          register
// @Summary     Register a new account
// @Description Creates an account. Username and email must be unique (case-insensitive).
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.RegisterRequest  true  "Registration payload"
//
// @Success     201  {object}  domain.Account
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Username or email taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts [post]
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "fullName, username, email and password are required")
		return
	}

	a, err := h.accountSvc.Register(c.Request.Context(), services.RegisterInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrDuplicateAccount):
			fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, a)
}

// Login godoc
// @ID          login
// @Summary     Open a session
// @Description Verifies credentials and returns a time-limited bearer token.
// @Tags        Accounts
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
//
// @Success     200  {object}  handlers.LoginResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Invalid credentials"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	token, a, err := h.accountSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, LoginResponse{Token: token, Account: a})
}

// GetMe godoc
// @ID          getMe
// @Summary     Current profile
// @Tags        Accounts
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object}  domain.Account
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Router      /accounts/me [get]
func (h *Handlers) GetMe(c *gin.Context) {
	a, err := h.accountSvc.Get(c.Request.Context(), accountID(c))
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, a)
}

// UpdateMe godoc
// @ID          updateMe
// @Summary     Update current profile
// @Description Applies the provided profile fields. With multipart form data, a "photo"
// @Description file part replaces the profile photo (the old file is removed best-effort).
// @Tags        Accounts
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
//
// @Param       fullName  formData  string  false "Full name"
// @Param       phone     formData  string  false "Phone"
// @Param       address   formData  string  false "Address"
// @Param       photo     formData  file    false "Profile photo (image/*)"
//
// @Success     200  {object}  domain.Account
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/me [put]
func (h *Handlers) UpdateMe(c *gin.Context) {
	var (
		upd   services.ProfileUpdate
		photo *services.Upload
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid multipart form")
			return
		}
		upd.FullName = formValue(form.Value, "fullName")
		upd.Phone = formValue(form.Value, "phone")
		upd.Address = formValue(form.Value, "address")

		if fhs := form.File["photo"]; len(fhs) > 0 {
			fh := fhs[0]
			if !isImage(fh) {
				fail(c, http.StatusBadRequest, ErrCodeUnsupportedFile, "photo must be an image")
				return
			}
			up, closeFn, err := openUpload(fh)
			if err != nil {
				fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
				return
			}
			defer closeFn()
			photo = up
		}
	} else {
		var req struct {
			FullName *string `json:"fullName"`
			Phone    *string `json:"phone"`
			Address  *string `json:"address"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
		upd = services.ProfileUpdate{FullName: req.FullName, Phone: req.Phone, Address: req.Address}
	}

	a, err := h.accountSvc.UpdateProfile(c.Request.Context(), accountID(c), upd, photo)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, a)
}

// DeleteMe godoc
// @ID          deleteMe
// @Summary     Delete current account
// @Description Removes the account, its photo file, and all owned conversations.
// @Tags        Accounts
// @Security    BearerAuth
//
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/me [delete]
func (h *Handlers) DeleteMe(c *gin.Context) {
	if err := h.accountSvc.Delete(c.Request.Context(), accountID(c)); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	noContent(c)
}

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List accounts (admin only)
// @Description Paginated account listing with case-insensitive substring search
// @Description over name/username/email/phone.
// @Tags        Accounts
// @Produce     json
// @Security    BearerAuth
//
// @Param       page    query  int     false "Page number"     minimum(1) default(1)
// @Param       limit   query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       search  query  string  false "Free-text search"
//
// @Success     200  {object}  handlers.ListAccountsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	ctx := c.Request.Context()
	if !h.requireAdmin(c) {
		return
	}

	page := utils.AtoiDefault(c.Query("page"), 1)
	limit := utils.AtoiDefault(c.Query("limit"), 20)
	items, total, err := h.accountSvc.ListPage(ctx, page, limit, c.Query("search"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	ok(c, http.StatusOK, ListAccountsResponse{
		Items:      items,
		Pagination: paginate(page, limit, total),
	})
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Fetch an account by id
// @Description Returns the account for "me" or, for admins, any account id.
// @Tags        Accounts
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Account ID (UUID) or `me`"
//
// @Success     200  {object}  domain.Account
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Not self and not admin"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Router      /accounts/{id} [get]
func (h *Handlers) GetAccount(c *gin.Context) {
	ctx := c.Request.Context()
	requester := accountID(c)
	id := c.Param("id")
	if id == "me" {
		id = requester
	}
	if id != requester && !h.requireAdmin(c) {
		return
	}

	a, err := h.accountSvc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, a)
}

// requireAdmin loads the requester's account and aborts with 403 when it is
// not an admin. Returns true when the request may proceed.
func (h *Handlers) requireAdmin(c *gin.Context) bool {
	a, err := h.accountSvc.Get(c.Request.Context(), accountID(c))
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin privileges required")
			return false
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return false
	}
	if !a.IsAdmin {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "admin privileges required")
		return false
	}
	return true
}

// formValue returns a pointer to the first value of a multipart form field,
// or nil when the field was not submitted at all.
func formValue(values map[string][]string, key string) *string {
	vs, present := values[key]
	if !present || len(vs) == 0 {
		return nil
	}
	v := vs[0]
	return &v
}
