package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const bookColumns = `id, isbn, title, author, published_date, status, thumbnail_url,
		       publisher, page_count, created_at, updated_at`

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) FindByISBN(ctx context.Context, isbn string) (Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE isbn = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanOne(r.db.QueryRow(timeoutCtx, query, isbn))
}

func (r *PostgresRepo) FindByID(ctx context.Context, id int64) (Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanOne(r.db.QueryRow(timeoutCtx, query, id))
}

func (r *PostgresRepo) FindAll(ctx context.Context) ([]Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY id`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Save(ctx context.Context, b *Book) error {
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	if b.ID == 0 {
		return r.insert(ctx, b)
	}
	return r.update(ctx, b)
}

func (r *PostgresRepo) insert(ctx context.Context, b *Book) error {
	const sql = `
		INSERT INTO books (isbn, title, author, published_date, status, thumbnail_url,
		                   publisher, page_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, sql,
		b.ISBN, b.Title, b.Author, b.PublishedDate, string(b.Status), b.ThumbnailURL,
		b.Publisher, b.PageCount,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrISBNConflict
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *PostgresRepo) update(ctx context.Context, b *Book) error {
	const sql = `
		UPDATE books SET
			isbn = $2,
			title = $3,
			author = $4,
			published_date = $5,
			status = $6,
			thumbnail_url = $7,
			publisher = $8,
			page_count = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, sql,
		b.ID, b.ISBN, b.Title, b.Author, b.PublishedDate, string(b.Status), b.ThumbnailURL,
		b.Publisher, b.PageCount,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrISBNConflict
		}
		return fmt.Errorf("update book %d: %w", b.ID, err)
	}
	return nil
}

func (r *PostgresRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete book %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanOne(row pgx.Row) (Book, error) {
	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func scanBook(row pgx.Row) (Book, error) {
	var (
		b      Book
		status string
	)
	err := row.Scan(
		&b.ID, &b.ISBN, &b.Title, &b.Author, &b.PublishedDate, &status, &b.ThumbnailURL,
		&b.Publisher, &b.PageCount, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return Book{}, err
	}
	b.Status = Status(status)
	return b, nil
}
