package book

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"shelfie/internal/platform/openlibrary"
)

// Service provides book-related business logic.
type Service struct {
	repo          Repository
	provider      MetadataProvider
	coversBaseURL string
}

// NewService creates a new book service. coversBaseURL is the host that
// serves cover images; empty means DefaultCoversBaseURL.
func NewService(repo Repository, provider MetadataProvider, coversBaseURL string) *Service {
	return &Service{
		repo:          repo,
		provider:      provider,
		coversBaseURL: coversBaseURL,
	}
}

// Create catalogs a new book enriched with Open Library metadata and
// returns its ID.
//
// The ISBN lookup only fails early; the store's unique constraint is what
// keeps concurrent creates from both succeeding, and its rejection is
// reported as the same *DuplicateError. Provider errors are returned
// unchanged and nothing is saved.
func (s *Service) Create(ctx context.Context, req CreateRequest) (int64, error) {
	isbn := strings.TrimSpace(req.ISBN)
	if isbn == "" {
		return 0, ErrInvalidISBN
	}

	_, err := s.repo.FindByISBN(ctx, isbn)
	switch {
	case err == nil:
		log.Info().Str("isbn", isbn).Msg("rejected duplicate book")
		return 0, &DuplicateError{ISBN: isbn}
	case !errors.Is(err, ErrNotFound):
		return 0, fmt.Errorf("find book by isbn: %w", err)
	}

	edition, err := s.provider.FetchByISBN(ctx, isbn)
	if err != nil {
		log.Warn().Err(err).Str("isbn", isbn).Msg("metadata lookup failed")
		return 0, err
	}

	b := newBook(req, isbn, edition, s.coversBaseURL)
	if err := s.repo.Save(ctx, b); err != nil {
		if errors.Is(err, ErrISBNConflict) {
			log.Info().Str("isbn", isbn).Msg("rejected duplicate book on save")
			return 0, &DuplicateError{ISBN: isbn}
		}
		return 0, fmt.Errorf("save book: %w", err)
	}

	log.Info().
		Int64("book_id", b.ID).
		Str("isbn", isbn).
		Bool("has_thumbnail", b.ThumbnailURL != nil).
		Msg("book created")
	return b.ID, nil
}

func newBook(req CreateRequest, isbn string, edition *openlibrary.Edition, coversBaseURL string) *Book {
	b := &Book{
		ISBN:          isbn,
		Title:         req.Title,
		Author:        req.Author,
		PublishedDate: req.PublishedDate,
		Status:        StatusAvailable,
	}
	if edition == nil {
		return b
	}
	b.ThumbnailURL = ThumbnailURL(coversBaseURL, edition.Covers)
	b.Publisher = strings.Join(edition.Publishers, ", ")
	if n := edition.NumberOfPages; n != nil && *n > 0 {
		b.PageCount = n
	}
	return b
}

// GetByID returns a book by its ID.
func (s *Service) GetByID(ctx context.Context, id int64) (Book, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every cataloged book.
func (s *Service) List(ctx context.Context) ([]Book, error) {
	return s.repo.FindAll(ctx)
}

// Delete removes a book and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		log.Info().Int64("book_id", id).Msg("book deleted")
	}
	return deleted, nil
}
