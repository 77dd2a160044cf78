package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/services"
)

// fakeBookSvc implements BookService with overridable behavior.
type fakeBookSvc struct {
	create func(context.Context, string, string, string, *services.Upload, *services.Upload) (*domain.Book, error)
	list   func(context.Context) ([]domain.Book, error)
	get    func(context.Context, string) (*domain.Book, error)
	update func(context.Context, string, services.BookUpdate, *services.Upload, *services.Upload) (*domain.Book, error)
	delete func(context.Context, string) error
}

func (f *fakeBookSvc) Create(ctx context.Context, title, author, description string, pdf, poster *services.Upload) (*domain.Book, error) {
	if f.create != nil {
		return f.create(ctx, title, author, description, pdf, poster)
	}
	return &domain.Book{ID: "b1", Title: title, Author: author}, nil
}

func (f *fakeBookSvc) List(ctx context.Context) ([]domain.Book, error) {
	if f.list != nil {
		return f.list(ctx)
	}
	return []domain.Book{}, nil
}

func (f *fakeBookSvc) Get(ctx context.Context, id string) (*domain.Book, error) {
	if f.get != nil {
		return f.get(ctx, id)
	}
	return &domain.Book{ID: id}, nil
}

func (f *fakeBookSvc) Update(ctx context.Context, id string, upd services.BookUpdate, pdf, poster *services.Upload) (*domain.Book, error) {
	if f.update != nil {
		return f.update(ctx, id, upd, pdf, poster)
	}
	return &domain.Book{ID: id}, nil
}

func (f *fakeBookSvc) Delete(ctx context.Context, id string) error {
	if f.delete != nil {
		return f.delete(ctx, id)
	}
	return nil
}

func newBookHandlers(svc BookService) *Handlers {
	return New(&fakeAccountSvc{}, svc, stubConvSvc{}, stubDirSvc{}, nil)
}

// bookForm builds a multipart body with the given fields and file parts.
// Each file part is (field, filename, contentType, payload).
func bookForm(t *testing.T, fields map[string]string, files ...[4]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+f[0]+`"; filename="`+f[1]+`"`)
		if f[2] != "" {
			hdr.Set("Content-Type", f[2])
		}
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part %s: %v", f[0], err)
		}
		if _, err := io.WriteString(part, f[3]); err != nil {
			t.Fatalf("write part %s: %v", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestCreateBook_RequiresMultipartAndPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newBookHandlers(&fakeBookSvc{})
	r := gin.New()
	r.POST("/books", h.CreateBook)

	// JSON body -> 400.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/books", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("json body -> %d", w.Code)
	}

	// Multipart without pdf part -> 400.
	body, ct := bookForm(t, map[string]string{"title": "T"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing pdf -> %d", w.Code)
	}
}

func TestCreateBook_RejectsWrongFileTypes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newBookHandlers(&fakeBookSvc{})
	r := gin.New()
	r.POST("/books", h.CreateBook)

	// Non-PDF in the pdf part -> 400.
	body, ct := bookForm(t, map[string]string{"title": "T"},
		[4]string{"pdf", "notes.txt", "text/plain", "hello"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-pdf -> %d body=%s", w.Code, w.Body.String())
	}

	// Non-image in the poster part -> 400.
	body, ct = bookForm(t, map[string]string{"title": "T"},
		[4]string{"pdf", "book.pdf", "application/pdf", "%PDF"},
		[4]string{"poster", "poster.exe", "application/octet-stream", "MZ"})
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-image poster -> %d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateBook_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotPDF, gotPoster *services.Upload
	h := newBookHandlers(&fakeBookSvc{
		create: func(_ context.Context, title, author, description string, pdf, poster *services.Upload) (*domain.Book, error) {
			gotPDF, gotPoster = pdf, poster
			return &domain.Book{ID: "b1", Title: title, Author: author, Description: description}, nil
		},
	})
	r := gin.New()
	r.POST("/books", h.CreateBook)

	body, ct := bookForm(t, map[string]string{"title": "Criminal Law", "author": "J. Doe"},
		[4]string{"pdf", "book.pdf", "application/pdf", "%PDF"},
		[4]string{"poster", "cover.png", "image/png", "png-bytes"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/books", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
	}
	if gotPDF == nil || gotPDF.Ext != ".pdf" {
		t.Fatalf("pdf upload: %+v", gotPDF)
	}
	if gotPoster == nil || gotPoster.Ext != ".png" {
		t.Fatalf("poster upload: %+v", gotPoster)
	}
	var out domain.Book
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Title != "Criminal Law" {
		t.Fatalf("unexpected book: %s (%v)", w.Body.String(), err)
	}
}

func TestGetBook_BadID_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newBookHandlers(&fakeBookSvc{
		get: func(context.Context, string) (*domain.Book, error) {
			return nil, services.ErrBookNotFound
		},
	})
	r := gin.New()
	r.GET("/books/:id", h.GetBook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/books/bogus", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/books/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing -> %d", w.Code)
	}
}

func TestUpdateBook_PartialFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotUpd services.BookUpdate
	h := newBookHandlers(&fakeBookSvc{
		update: func(_ context.Context, id string, upd services.BookUpdate, pdf, poster *services.Upload) (*domain.Book, error) {
			gotUpd = upd
			return &domain.Book{ID: id}, nil
		},
	})
	r := gin.New()
	r.PUT("/books/:id", h.UpdateBook)

	body, ct := bookForm(t, map[string]string{"author": "New Author"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/books/"+uuid.NewString(), body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update -> %d body=%s", w.Code, w.Body.String())
	}
	if gotUpd.Author == nil || *gotUpd.Author != "New Author" {
		t.Fatalf("author not forwarded: %+v", gotUpd)
	}
	if gotUpd.Title != nil || gotUpd.Description != nil {
		t.Fatalf("absent fields must stay nil: %+v", gotUpd)
	}
}

func TestDeleteBook(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newBookHandlers(&fakeBookSvc{})
	r := gin.New()
	r.DELETE("/books/:id", h.DeleteBook)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/books/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}

	h2 := newBookHandlers(&fakeBookSvc{
		delete: func(context.Context, string) error { return services.ErrBookNotFound },
	})
	r2 := gin.New()
	r2.DELETE("/books/:id", h2.DeleteBook)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/books/"+uuid.NewString(), nil)
	r2.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing -> %d", w.Code)
	}
}
