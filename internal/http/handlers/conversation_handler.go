// Conversation HTTP handlers.
//
// This file exposes REST endpoints for chat resources:
//   - POST   /conversations                         (create, optional title)
//   - GET    /conversations                         (list, paginated, ETag support)
//   - GET    /conversations/{id}                    (fetch with turns)
//   - DELETE /conversations/{id}                    (owner-only hard delete)
//   - POST   /conversations/{id}/turns              (post a turn, get bot reply)
//   - POST   /conversations/first-turn              (create + first turn in one call)
//   - PATCH  /conversations/{id}/turns/{turnId}     (edit a turn's text)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (account, conversation, key), the turn-posting handler
// returns the recorded bot reply and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/http/middleware"
	"github.com/tbourn/go-admin-backend/internal/repo"
	"github.com/tbourn/go-admin-backend/internal/services"
	"github.com/tbourn/go-admin-backend/internal/utils"
)

//
// DTOs
//

// CreateConversationRequest is the JSON payload for creating a conversation.
type CreateConversationRequest struct {
	// Title optionally names the conversation; a default is used when empty.
	Title string `json:"title" example:"Contract questions"`
}

// PostTurnRequest is the JSON payload for sending a message.
type PostTurnRequest struct {
	// Message is the user's text. It must be non-empty after trimming.
	Message string `json:"message" binding:"required,min=1" example:"What does clause 4 mean?"`
}

// EditTurnRequest is the JSON payload for editing a turn.
type EditTurnRequest struct {
	Text string `json:"text" binding:"required,min=1"`
}

// TurnResponse wraps the bot reply and the full conversation after an exchange.
type TurnResponse struct {
	Reply        string               `json:"reply"`
	Conversation *domain.Conversation `json:"conversation"`
}

// ListConversationsResponse wraps a page of conversations and pagination
// information.
type ListConversationsResponse struct {
	Items      []domain.Conversation `json:"items"`
	Pagination Pagination            `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and limit query params to sane
// defaults and limits.
func clampPagination(c *gin.Context) (page, limit int) {
	const (
		defaultPage  = 1
		defaultLimit = 20
		maxLimit     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	limit = utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return
}

// convDB exposes the concrete service's DB handle for ETag and idempotency
// lookups; nil when the service is backed by something else (tests).
func (h *Handlers) convDB() *gorm.DB {
	if svc, ok := h.convSvc.(*services.ConversationService); ok {
		return svc.DB
	}
	return nil
}

// failConversation maps conversation service errors onto HTTP responses.
func failConversation(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
	case errors.Is(err, services.ErrTurnNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "turn not found")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not the conversation owner")
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

//
// Handlers
//

// CreateConversation godoc
// @ID          createConversation
// @Summary     Create a conversation
// @Description Creates an empty conversation for the current account.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateConversationRequest  true  "Create payload"
//
// @Success     201  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [post]
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	conv, err := h.convSvc.Create(c.Request.Context(), accountID(c), strings.TrimSpace(req.Title))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, conv)
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (paginated)
// @Description Returns a page of the account's conversations ordered by recent
// @Description activity. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       limit          query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListConversationsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := accountID(c)
	page, limit := clampPagination(c)

	// ETag pre-check (best effort).
	if db := h.convDB(); db != nil {
		count, maxTS, err := repo.ConversationsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.convSvc.ListPage(ctx, uid, page, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListConversationsResponse{
		Items:      items,
		Pagination: paginate(page, limit, total),
	})
}

// GetConversation godoc
// @ID          getConversation
// @Summary     Fetch a conversation with its turns
// @Tags        Conversations
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Conversation ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Router      /conversations/{id} [get]
func (h *Handlers) GetConversation(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	conv, err := h.convSvc.Get(c.Request.Context(), accountID(c), id)
	if err != nil {
		failConversation(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, conv)
}

// DeleteConversation godoc
// @ID          deleteConversation
// @Summary     Delete a conversation
// @Description Owner-only hard delete of the conversation and all its turns.
// @Tags        Conversations
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Conversation ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Router      /conversations/{id} [delete]
func (h *Handlers) DeleteConversation(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	if err := h.convSvc.Delete(c.Request.Context(), accountID(c), id); err != nil {
		failConversation(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}

// PostTurn godoc
// @ID          postTurn
// @Summary     Send a message and get the bot reply
// @Description Appends the user's message, forwards the trailing context window to the
// @Description generation endpoint, and appends the reply (or the fallback text when
// @Description the call fails). Supports idempotency via the Idempotency-Key header.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostTurnRequest  true  "Message payload"
//
// @Success     200  {object}  handlers.TurnResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id}/turns [post]
func (h *Handlers) PostTurn(c *gin.Context) {
	ctx := c.Request.Context()
	conversationID := c.Param("id")
	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	var req PostTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	uid := accountID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if db := h.convDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, conversationID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				prev, err2 := repo.GetTurn(ctx, db, conversationID, rec.TurnID)
				conv, err3 := h.convSvc.Get(ctx, uid, conversationID)
				if err2 == nil && err3 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, TurnResponse{Reply: prev.Text, Conversation: conv})
					return
				}
			}
		}
	}

	reply, conv, err := h.convSvc.PostTurn(ctx, uid, conversationID, req.Message)
	if err != nil {
		failConversation(c, err, ErrCodeReplyFailed)
		return
	}

	// Idempotency (store path) – best effort; record the bot turn id.
	if idemKey != "" && len(conv.Turns) > 0 {
		if db := h.convDB(); db != nil {
			last := conv.Turns[len(conv.Turns)-1]
			_, _ = repo.CreateIdempotency(ctx, db, uid, conversationID, idemKey, last.ID, http.StatusOK, 24*time.Hour)
		}
	}

	ok(c, http.StatusOK, TurnResponse{Reply: reply, Conversation: conv})
}

// CreateFirstTurn godoc
// @ID          createFirstTurn
// @Summary     Start a conversation with a first message
// @Description Creates a conversation auto-titled from the first three words of the
// @Description message, then runs the normal turn flow against it.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.PostTurnRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.TurnResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/first-turn [post]
func (h *Handlers) CreateFirstTurn(c *gin.Context) {
	var req PostTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	reply, conv, err := h.convSvc.CreateWithFirstTurn(c.Request.Context(), accountID(c), req.Message)
	if err != nil {
		failConversation(c, err, ErrCodeReplyFailed)
		return
	}
	ok(c, http.StatusCreated, TurnResponse{Reply: reply, Conversation: conv})
}

// EditTurn godoc
// @ID          editTurn
// @Summary     Edit a turn's text
// @Description Replaces the text of one turn, leaving ordering and other turns untouched.
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id      path  string  true  "Conversation ID (UUID)"  format(uuid)
// @Param       turnId  path  string  true  "Turn ID (UUID)"          format(uuid)
// @Param       body    body  handlers.EditTurnRequest  true  "New text"
//
// @Success     200  {object}  domain.Turn
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Conversation or turn not found"
// @Router      /conversations/{id}/turns/{turnId} [patch]
func (h *Handlers) EditTurn(c *gin.Context) {
	conversationID := c.Param("id")
	turnID := c.Param("turnId")
	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}
	if _, err := uuid.Parse(turnID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "turn id must be a UUID")
		return
	}

	var req EditTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text required")
		return
	}

	t, err := h.convSvc.EditTurn(c.Request.Context(), accountID(c), conversationID, turnID, req.Text)
	if err != nil {
		failConversation(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, t)
}
