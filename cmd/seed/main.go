package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"shelfie/internal/book"
	"shelfie/internal/config"
	"shelfie/internal/platform/database"
	"shelfie/internal/platform/logger"
	"shelfie/internal/platform/openlibrary"
	"shelfie/internal/platform/token"
)

type seedBook struct {
	isbn, title, author, published string
}

var catalog = []seedBook{
	{"9780134685991", "Effective Java", "Joshua Bloch", "2018-01-06"},
	{"9780201633610", "Design Patterns", "Erich Gamma", "1994-10-31"},
	{"9780132350884", "Clean Code", "Robert C. Martin", "2008-08-01"},
	{"9780201616224", "The Pragmatic Programmer", "Andrew Hunt", "1999-10-20"},
	{"9780262033848", "Introduction to Algorithms", "Thomas H. Cormen", "2009-07-31"},
	{"9780134190440", "The Go Programming Language", "Alan A. A. Donovan", "2015-10-26"},
	{"9781449373320", "Designing Data-Intensive Applications", "Martin Kleppmann", "2017-03-16"},
	{"9780596007126", "Head First Design Patterns", "Eric Freeman", "2004-10-25"},
}

func main() {
	tokenRole := flag.String("token", "", "Print a bearer token for this role (USER or ADMIN) and exit")
	subject := flag.String("subject", "seed", "Token subject used with -token")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime used with -token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("development", "info")
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	if *tokenRole != "" {
		if *tokenRole != token.RoleUser && *tokenRole != token.RoleAdmin {
			log.Fatal().Str("role", *tokenRole).Msg("role must be USER or ADMIN")
		}
		tok, err := token.Issue(cfg.JWT.Secret, *subject, *tokenRole, *ttl)
		if err != nil {
			log.Fatal().Err(err).Msg("issue token")
		}
		fmt.Println(tok)
		return
	}

	ctx := context.Background()
	pool, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	svc := book.NewService(
		book.NewPostgresRepo(pool, cfg.Database.QueryTimeout),
		openlibrary.NewClient(cfg.OpenLibrary.BaseURL, cfg.OpenLibrary.UserAgent, cfg.OpenLibrary.RPS, cfg.OpenLibrary.Timeout),
		cfg.OpenLibrary.CoversURL,
	)

	created, skipped, failed := seed(ctx, svc, catalog)
	log.Info().Int("created", created).Int("skipped", skipped).Int("failed", failed).Msg("seed finished")
	if failed > 0 {
		os.Exit(1)
	}
}

type creator interface {
	Create(ctx context.Context, req book.CreateRequest) (int64, error)
}

// seed creates each book, treating already cataloged ISBNs as done.
func seed(ctx context.Context, svc creator, books []seedBook) (created, skipped, failed int) {
	for _, sb := range books {
		published, err := time.Parse("2006-01-02", sb.published)
		if err != nil {
			log.Error().Err(err).Str("isbn", sb.isbn).Msg("bad seed date")
			failed++
			continue
		}

		id, err := svc.Create(ctx, book.CreateRequest{
			ISBN:          sb.isbn,
			Title:         sb.title,
			Author:        sb.author,
			PublishedDate: published,
		})
		switch {
		case err == nil:
			log.Info().Int64("book_id", id).Str("title", sb.title).Msg("seeded")
			created++
		case errors.Is(err, book.ErrDuplicate):
			skipped++
		default:
			log.Error().Err(err).Str("isbn", sb.isbn).Msg("seed failed")
			failed++
		}
	}
	return created, skipped, failed
}
