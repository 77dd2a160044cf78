// Directory HTTP handlers.
//
// This file exposes the administrative browsing/editing surface over two
// record sets:
//   - GET    /directory/accounts           (paginated, searchable, sortable)
//   - PUT    /directory/accounts/{id}      (whitelisted partial update)
//   - DELETE /directory/accounts/{id}
//   - GET    /directory/lawyers            (paginated, searchable, sortable, filterable)
//   - GET    /directory/lawyers/{id}
//   - PUT    /directory/lawyers/{id}       (whitelisted partial update)
//   - DELETE /directory/lawyers/{id}
//
// All directory endpoints are admin-gated. Sensitive fields (password hashes)
// never appear in responses; the domain models exclude them from JSON.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/services"
	"github.com/tbourn/go-admin-backend/internal/utils"
)

//
// DTOs
//

// DirectoryAccountUpdateRequest is the JSON payload for editing an account
// through the directory. Absent fields are left untouched.
type DirectoryAccountUpdateRequest struct {
	FullName *string `json:"fullName"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	IsAdmin  *bool   `json:"isAdmin"`
}

// LawyerUpdateRequest is the JSON payload for editing a lawyer record.
// Absent fields are left untouched.
type LawyerUpdateRequest struct {
	Name          *string   `json:"name"`
	Email         *string   `json:"email"`
	Phone         *string   `json:"phone"`
	Bio           *string   `json:"bio"`
	PracticeAreas *[]string `json:"practiceAreas"`
	OfficeAddress *string   `json:"officeAddress"`
	Role          *string   `json:"role"`
}

// ListLawyersResponse wraps a page of lawyer records and pagination
// information.
type ListLawyersResponse struct {
	Items      []domain.Lawyer `json:"items"`
	Pagination Pagination      `json:"pagination"`
}

//
// Helpers
//

// directoryQuery parses the shared listing query parameters.
func directoryQuery(c *gin.Context) services.ListQuery {
	return services.ListQuery{
		Page:       utils.AtoiDefault(c.Query("page"), 1),
		Limit:      utils.AtoiDefault(c.Query("limit"), 20),
		SortBy:     c.Query("sortBy"),
		SortOrder:  c.Query("sortOrder"),
		Search:     c.Query("search"),
		Role:       c.Query("role"),
		Experience: utils.AtoiDefault(c.Query("experience"), 0),
	}
}

// clampEnvelope bounds the page/limit echoed in the response envelope the
// same way the service layer bounds the query.
func clampEnvelope(q services.ListQuery) (page, limit int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return
}

// failDirectory maps directory service errors onto HTTP responses.
func failDirectory(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrInvalidID):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid id format")
	case errors.Is(err, services.ErrAccountNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
	case errors.Is(err, services.ErrLawyerNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "lawyer not found")
	case errors.Is(err, services.ErrDuplicateAccount):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

//
// Handlers
//

// ListDirectoryAccounts godoc
// @ID          listDirectoryAccounts
// @Summary     List accounts in the directory (admin only)
// @Description Paginated listing with free-text search, role filter
// @Description (admin/user) and whitelisted single-field sort.
// @Tags        Directory
// @Produce     json
// @Security    BearerAuth
//
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       limit      query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       sortBy     query  string  false "Sort field (createdAt, fullName, username, email, isAdmin)"
// @Param       sortOrder  query  string  false "asc or desc"  default(desc)
// @Param       search     query  string  false "Free-text search"
// @Param       role       query  string  false "admin or user"
//
// @Success     200  {object}  handlers.ListAccountsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /directory/accounts [get]
func (h *Handlers) ListDirectoryAccounts(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	q := directoryQuery(c)
	items, total, err := h.dirSvc.ListAccounts(c.Request.Context(), q)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	page, limit := clampEnvelope(q)
	ok(c, http.StatusOK, ListAccountsResponse{
		Items:      items,
		Pagination: paginate(page, limit, total),
	})
}

// UpdateDirectoryAccount godoc
// @ID          updateDirectoryAccount
// @Summary     Edit an account (admin only)
// @Description Applies a whitelisted partial update (fullName, username, email,
// @Description phone, isAdmin).
// @Tags        Directory
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.DirectoryAccountUpdateRequest  true  "Fields to update"
//
// @Success     200  {object}  domain.Account
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Username or email taken"
// @Router      /directory/accounts/{id} [put]
func (h *Handlers) UpdateDirectoryAccount(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var req DirectoryAccountUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.dirSvc.UpdateAccount(c.Request.Context(), c.Param("id"), services.AccountDirectoryUpdate{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		failDirectory(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, a)
}

// DeleteDirectoryAccount godoc
// @ID          deleteDirectoryAccount
// @Summary     Delete an account (admin only)
// @Description Removes the account through the same cleanup path as
// @Description self-deletion (photo, conversations, record).
// @Tags        Directory
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Account ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Router      /directory/accounts/{id} [delete]
func (h *Handlers) DeleteDirectoryAccount(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if err := h.dirSvc.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		failDirectory(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// ListLawyers godoc
// @ID          listLawyers
// @Summary     List lawyer records (admin only)
// @Description Paginated listing with free-text search, role-equality filter,
// @Description minimum-experience filter, and whitelisted single-field sort.
// @Tags        Directory
// @Produce     json
// @Security    BearerAuth
//
// @Param       page        query  int     false "Page number"     minimum(1) default(1)
// @Param       limit       query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       sortBy      query  string  false "Sort field (createdAt, name, email, experienceYears, role)"
// @Param       sortOrder   query  string  false "asc or desc"  default(desc)
// @Param       search      query  string  false "Free-text search"
// @Param       role        query  string  false "Role equality filter"
// @Param       experience  query  int     false "Minimum experience years"
//
// @Success     200  {object}  handlers.ListLawyersResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /directory/lawyers [get]
func (h *Handlers) ListLawyers(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	q := directoryQuery(c)
	items, total, err := h.dirSvc.ListLawyers(c.Request.Context(), q)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	page, limit := clampEnvelope(q)
	ok(c, http.StatusOK, ListLawyersResponse{
		Items:      items,
		Pagination: paginate(page, limit, total),
	})
}

// GetLawyer godoc
// @ID          getLawyer
// @Summary     Fetch a lawyer record (admin only)
// @Tags        Directory
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Lawyer ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Lawyer
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Lawyer not found"
// @Router      /directory/lawyers/{id} [get]
func (h *Handlers) GetLawyer(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	l, err := h.dirSvc.GetLawyer(c.Request.Context(), c.Param("id"))
	if err != nil {
		failDirectory(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, l)
}

// UpdateLawyer godoc
// @ID          updateLawyer
// @Summary     Edit a lawyer record (admin only)
// @Description Applies a whitelisted partial update (name, email, phone, bio,
// @Description practiceAreas, officeAddress, role).
// @Tags        Directory
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true  "Lawyer ID (UUID)"  format(uuid)
// @Param       body  body  handlers.LawyerUpdateRequest  true  "Fields to update"
//
// @Success     200  {object}  domain.Lawyer
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Lawyer not found"
// @Router      /directory/lawyers/{id} [put]
func (h *Handlers) UpdateLawyer(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var req LawyerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	l, err := h.dirSvc.UpdateLawyer(c.Request.Context(), c.Param("id"), services.LawyerUpdate{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Bio:           req.Bio,
		PracticeAreas: req.PracticeAreas,
		OfficeAddress: req.OfficeAddress,
		Role:          req.Role,
	})
	if err != nil {
		failDirectory(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, l)
}

// DeleteLawyer godoc
// @ID          deleteLawyer
// @Summary     Delete a lawyer record (admin only)
// @Description Removes the record and any KYC submissions attached to it.
// @Tags        Directory
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Lawyer ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Lawyer not found"
// @Router      /directory/lawyers/{id} [delete]
func (h *Handlers) DeleteLawyer(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if err := h.dirSvc.DeleteLawyer(c.Request.Context(), c.Param("id")); err != nil {
		failDirectory(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
