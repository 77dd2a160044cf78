// KYC HTTP handlers.
//
// This file exposes the verification-review surface:
//   - GET /kyc               (paginated listing with status filter and sort)
//   - PUT /kyc/{id}/accept
//   - PUT /kyc/{id}/reject   (body: {reason}, reason mandatory)
//
// The whole surface is admin-gated and mounted conditionally: when KYC review
// is disabled by configuration the routes do not exist at all.
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

// RejectKYCRequest is the JSON payload for rejecting a submission.
type RejectKYCRequest struct {
	// Reason must be non-empty after trimming.
	Reason string `json:"reason" binding:"required,min=1" example:"license number unreadable"`
}

// ListKYCResponse wraps a page of submissions and pagination information.
type ListKYCResponse struct {
	Items      []domain.KYCSubmission `json:"items"`
	Pagination Pagination             `json:"pagination"`
}

// failKYC maps KYC service errors onto HTTP responses.
func failKYC(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrSubmissionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "kyc submission not found")
	case errors.Is(err, services.ErrReasonRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rejection reason required")
	case errors.Is(err, services.ErrAlreadyDecided):
		fail(c, http.StatusConflict, ErrCodeConflict, "kyc submission already decided")
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be pending, accepted or rejected")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

//
// Handlers
//

// ListKYC godoc
// @ID          listKYC
// @Summary     List KYC submissions (admin only)
// @Description Paginated listing, optionally filtered by status and sorted by a
// @Description whitelisted field (submission time descending by default).
// @Tags        KYC
// @Produce     json
// @Security    BearerAuth
//
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       limit      query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Param       status     query  string  false "pending, accepted or rejected"
// @Param       sortBy     query  string  false "Sort field (submittedAt, createdAt, updatedAt, status)"
// @Param       sortOrder  query  string  false "asc or desc"  default(desc)
//
// @Success     200  {object}  handlers.ListKYCResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad status filter"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin required"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /kyc [get]
func (h *Handlers) ListKYC(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	page := utils.AtoiDefault(c.Query("page"), 1)
	limit := utils.AtoiDefault(c.Query("limit"), 20)

	items, total, err := h.kycSvc.ListPage(c.Request.Context(), page, limit, c.Query("status"), c.Query("sortBy"), c.Query("sortOrder"))
	if err != nil {
		failKYC(c, err, ErrCodeListFailed)
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
	ok(c, http.StatusOK, ListKYCResponse{
		Items:      items,
		Pagination: paginate(page, limit, total),
	})
}

// AcceptKYC godoc
// @ID          acceptKYC
// @Summary     Accept a KYC submission (admin only)
// @Description Transitions a pending submission to accepted. Terminal submissions
// @Description cannot be decided again.
// @Tags        KYC
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Submission ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.KYCSubmission
// @Failure     404  {object}  handlers.ErrorResponse  "Submission not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already decided"
// @Router      /kyc/{id}/accept [put]
func (h *Handlers) AcceptKYC(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	sub, err := h.kycSvc.Accept(c.Request.Context(), c.Param("id"))
	if err != nil {
		failKYC(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, sub)
}

// RejectKYC godoc
// @ID          rejectKYC
// @Summary     Reject a KYC submission (admin only)
// @Description Transitions a pending submission to rejected. The reason is mandatory
// @Description and stored with the submission.
// @Tags        KYC
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string  true  "Submission ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RejectKYCRequest  true  "Rejection reason"
//
// @Success     200  {object}  domain.KYCSubmission
// @Failure     400  {object}  handlers.ErrorResponse  "Reason required"
// @Failure     404  {object}  handlers.ErrorResponse  "Submission not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Already decided"
// @Router      /kyc/{id}/reject [put]
func (h *Handlers) RejectKYC(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var req RejectKYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rejection reason required")
		return
	}
	sub, err := h.kycSvc.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		failKYC(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, sub)
}
