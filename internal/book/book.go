package book

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicate matches *DuplicateError.
	ErrDuplicate = errors.New("book already exists")
	// ErrISBNConflict is returned by a Repository when the storage-level
	// unique constraint on isbn rejects a write.
	ErrISBNConflict = errors.New("isbn unique constraint violated")
	// ErrInvalidISBN is returned for a creation request without an ISBN.
	ErrInvalidISBN = errors.New("isbn is required")
)

// DuplicateError reports that a book with ISBN is already cataloged, whether
// the lookup caught it or the store rejected a concurrent insert.
type DuplicateError struct {
	ISBN string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("book with ISBN %s already exists", e.ISBN)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusBorrowed  Status = "BORROWED"
)

func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusBorrowed
}

// Book represents a cataloged book.
type Book struct {
	ID            int64     `json:"id"`
	ISBN          string    `json:"isbn"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	PublishedDate time.Time `json:"published_date"`
	Status        Status    `json:"status"`
	ThumbnailURL  *string   `json:"thumbnail_url,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	PageCount     *int      `json:"page_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateRequest carries the user-supplied fields of a new book. Field
// validation happens at the HTTP boundary.
type CreateRequest struct {
	ISBN          string
	Title         string
	Author        string
	PublishedDate time.Time
}
