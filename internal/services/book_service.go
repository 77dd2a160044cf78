// Package services – BookService
//
// This file implements BookService, which owns the catalog of book records
// and their file attachments (a required PDF and an optional poster).
// Attachment replacement is ordered write-new-then-delete-old so a failing
// cleanup can never lose data; deletes of stored files are always
// best-effort and merely logged when they fail.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-admin-backend/internal/domain"
	"github.com/tbourn/go-admin-backend/internal/repo"
	"github.com/tbourn/go-admin-backend/internal/storage"
)

// BookUpdate carries the mutable book fields. Nil pointers leave the stored
// value untouched.
type BookUpdate struct {
	Title       *string
	Author      *string
	Description *string
}

// BookService provides create/read/update/delete operations for the catalog.
type BookService struct {
	// DB is the GORM handle for the primary database.
	DB *gorm.DB
	// Files stores PDF and poster attachments.
	Files *storage.FileStore
	// PublicBaseURL is the externally visible address used to derive file URLs.
	PublicBaseURL string
}

// Create validates and inserts a new book. The PDF is mandatory; the poster
// is optional. Stored files are removed again if the database insert fails.
func (s *BookService) Create(ctx context.Context, title, author, description string, pdf, poster *Upload) (*domain.Book, error) {
	tr := otel.Tracer("services/BookService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if pdf == nil {
		return nil, ErrPDFRequired
	}

	b := &domain.Book{
		Title:       title,
		Author:      strings.TrimSpace(author),
		Description: strings.TrimSpace(description),
	}

	pdfName, err := s.Files.Save(pdf.Reader, pdf.Ext)
	if err != nil {
		return nil, err
	}
	b.PDFName = pdfName
	b.PDFURL = fileURL(s.PublicBaseURL, pdfName)

	if poster != nil {
		posterName, err := s.Files.Save(poster.Reader, poster.Ext)
		if err != nil {
			s.removeFile(pdfName)
			return nil, err
		}
		b.PosterName = posterName
		b.PosterURL = fileURL(s.PublicBaseURL, posterName)
	}

	if err := repo.CreateBook(ctx, s.DB, b); err != nil {
		s.removeFile(b.PDFName)
		s.removeFile(b.PosterName)
		return nil, err
	}
	return b, nil
}

// List returns all books, most recent first.
func (s *BookService) List(ctx context.Context) ([]domain.Book, error) {
	return repo.ListBooks(ctx, s.DB)
}

// Get returns the book by id, or ErrBookNotFound.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	b, err := repo.GetBook(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	return b, err
}

// Update applies the provided fields and replaces attachments when new ones
// are supplied. New files are written before the record switches to them;
// the superseded files are deleted only after a successful save.
func (s *BookService) Update(ctx context.Context, id string, upd BookUpdate, pdf, poster *Upload) (*domain.Book, error) {
	tr := otel.Tracer("services/BookService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("book.id", id)),
	)
	defer span.End()

	b, err := repo.GetBook(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, ErrTitleRequired
		}
		b.Title = t
	}
	if upd.Author != nil {
		b.Author = strings.TrimSpace(*upd.Author)
	}
	if upd.Description != nil {
		b.Description = strings.TrimSpace(*upd.Description)
	}

	var oldFiles, newFiles []string
	if pdf != nil {
		name, err := s.Files.Save(pdf.Reader, pdf.Ext)
		if err != nil {
			return nil, err
		}
		newFiles = append(newFiles, name)
		oldFiles = append(oldFiles, b.PDFName)
		b.PDFName = name
		b.PDFURL = fileURL(s.PublicBaseURL, name)
	}
	if poster != nil {
		name, err := s.Files.Save(poster.Reader, poster.Ext)
		if err != nil {
			for _, n := range newFiles {
				s.removeFile(n)
			}
			return nil, err
		}
		newFiles = append(newFiles, name)
		oldFiles = append(oldFiles, b.PosterName)
		b.PosterName = name
		b.PosterURL = fileURL(s.PublicBaseURL, name)
	}

	if err := repo.SaveBook(ctx, s.DB, b); err != nil {
		for _, n := range newFiles {
			s.removeFile(n)
		}
		return nil, err
	}
	for _, n := range oldFiles {
		s.removeFile(n)
	}
	return b, nil
}

// Delete removes the record and then both attachment files (best-effort).
func (s *BookService) Delete(ctx context.Context, id string) error {
	tr := otel.Tracer("services/BookService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("book.id", id)),
	)
	defer span.End()

	b, err := repo.GetBook(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	if err := repo.DeleteBook(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	s.removeFile(b.PDFName)
	s.removeFile(b.PosterName)
	return nil
}

// removeFile drops a stored file, logging (not escalating) failures.
func (s *BookService) removeFile(name string) {
	if name == "" || s.Files == nil {
		return
	}
	if err := s.Files.Remove(name); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("file cleanup failed")
	}
}
