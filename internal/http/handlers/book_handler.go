// Book HTTP handlers.
//
// This file exposes REST endpoints for catalog resources:
//   - GET    /books        (list, most recent first)
//   - POST   /books        (create, multipart with pdf + optional poster)
//   - GET    /books/{id}
//   - PUT    /books/{id}   (partial update, optional replacement files)
//   - DELETE /books/{id}
//
// File-type policy: the "pdf" part only accepts PDF content, the "poster"
// part only accepts images; anything else is rejected with a client error.
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-admin-backend/internal/services"
)

//
// Helpers
//

// bookUploads extracts and validates the pdf/poster parts of a multipart
// form. Returned close functions must be deferred by the caller. A nil Upload
// means the part was not submitted.
func bookUploads(c *gin.Context, form *multipart.Form) (pdf, poster *services.Upload, cleanup func(), okRes bool) {
	var closers []func()
	cleanup = func() {
		for _, f := range closers {
			f()
		}
	}

	if fhs := form.File["pdf"]; len(fhs) > 0 {
		fh := fhs[0]
		if !isPDF(fh) {
			cleanup()
			fail(c, http.StatusBadRequest, ErrCodeUnsupportedFile, "pdf part must be a PDF file")
			return nil, nil, func() {}, false
		}
		up, closeFn, err := openUpload(fh)
		if err != nil {
			cleanup()
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
			return nil, nil, func() {}, false
		}
		closers = append(closers, closeFn)
		pdf = up
	}

	if fhs := form.File["poster"]; len(fhs) > 0 {
		fh := fhs[0]
		if !isImage(fh) {
			cleanup()
			fail(c, http.StatusBadRequest, ErrCodeUnsupportedFile, "poster part must be an image")
			return nil, nil, func() {}, false
		}
		up, closeFn, err := openUpload(fh)
		if err != nil {
			cleanup()
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
			return nil, nil, func() {}, false
		}
		closers = append(closers, closeFn)
		poster = up
	}

	return pdf, poster, cleanup, true
}

//
// Handlers
//

// ListBooks godoc
// @ID          listBooks
// @Summary     List books
// @Description Returns all catalog records, most recent first.
// @Tags        Books
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {array}   domain.Book
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books [get]
func (h *Handlers) ListBooks(c *gin.Context) {
	books, err := h.bookSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, books)
}

// GetBook godoc
// @ID          getBook
// @Summary     Fetch a book by id
// @Tags        Books
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Book ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Router      /books/{id} [get]
func (h *Handlers) GetBook(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "book id must be a UUID")
		return
	}
	b, err := h.bookSvc.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, b)
}

// CreateBook godoc
// @ID          createBook
// @Summary     Create a book
// @Description Multipart form with fields title (required), author, description and
// @Description file parts pdf (required, application/pdf) and poster (optional, image/*).
// @Tags        Books
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
//
// @Param       title        formData  string  true  "Title"
// @Param       author       formData  string  false "Author"
// @Param       description  formData  string  false "Description"
// @Param       pdf          formData  file    true  "PDF attachment"
// @Param       poster       formData  file    false "Poster image"
//
// @Success     201  {object}  domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books [post]
func (h *Handlers) CreateBook(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}

	pdf, poster, cleanup, okForm := bookUploads(c, form)
	if !okForm {
		return
	}
	defer cleanup()
	if pdf == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "pdf file is required")
		return
	}

	title := c.PostForm("title")
	b, err := h.bookSvc.Create(c.Request.Context(), title, c.PostForm("author"), c.PostForm("description"), pdf, poster)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTitleRequired), errors.Is(err, services.ErrPDFRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, b)
}

// UpdateBook godoc
// @ID          updateBook
// @Summary     Update a book
// @Description Partial update: only submitted form fields change. Replacement pdf/poster
// @Description parts are written before the record switches; old files are removed after.
// @Tags        Books
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
//
// @Param       id           path      string  true  "Book ID (UUID)"  format(uuid)
// @Param       title        formData  string  false "Title"
// @Param       author       formData  string  false "Author"
// @Param       description  formData  string  false "Description"
// @Param       pdf          formData  file    false "Replacement PDF"
// @Param       poster       formData  file    false "Replacement poster"
//
// @Success     200  {object}  domain.Book
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [put]
func (h *Handlers) UpdateBook(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "book id must be a UUID")
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}

	pdf, poster, cleanup, okForm := bookUploads(c, form)
	if !okForm {
		return
	}
	defer cleanup()

	upd := services.BookUpdate{
		Title:       formValue(form.Value, "title"),
		Author:      formValue(form.Value, "author"),
		Description: formValue(form.Value, "description"),
	}

	b, err := h.bookSvc.Update(c.Request.Context(), id, upd, pdf, poster)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
		case errors.Is(err, services.ErrTitleRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, b)
}

// DeleteBook godoc
// @ID          deleteBook
// @Summary     Delete a book
// @Description Removes the record and then both attachment files (best-effort).
// @Tags        Books
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Book ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Book not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /books/{id} [delete]
func (h *Handlers) DeleteBook(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "book id must be a UUID")
		return
	}
	if err := h.bookSvc.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	noContent(c)
}
