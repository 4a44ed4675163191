package book

import (
	"context"

	"shelfie/internal/platform/openlibrary"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Repository defines the contract for book data storage.
type Repository interface {
	// FindByISBN returns ErrNotFound when no book has the ISBN.
	FindByISBN(ctx context.Context, isbn string) (Book, error)
	// Save inserts b when b.ID is zero, assigning ID and timestamps, and
	// updates it otherwise. A write that would duplicate an ISBN fails with
	// ErrISBNConflict.
	Save(ctx context.Context, b *Book) error
	FindByID(ctx context.Context, id int64) (Book, error)
	FindAll(ctx context.Context) ([]Book, error)
	// DeleteByID reports whether a book was removed.
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

// MetadataProvider looks up edition metadata by ISBN.
type MetadataProvider interface {
	FetchByISBN(ctx context.Context, isbn string) (*openlibrary.Edition, error)
}
