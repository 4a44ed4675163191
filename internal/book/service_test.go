package book

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfie/internal/platform/openlibrary"
)

// memRepo is a Repository backed by a map. Like the books table it rejects
// a second record with the same ISBN.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]Book
	saves  int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[int64]Book{}}
}

func (r *memRepo) FindByISBN(_ context.Context, isbn string) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.byID {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

func (r *memRepo) Save(_ context.Context, b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	for id, existing := range r.byID {
		if existing.ISBN == b.ISBN && id != b.ID {
			return ErrISBNConflict
		}
	}
	now := time.Now().UTC()
	if b.ID == 0 {
		r.nextID++
		b.ID = r.nextID
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	r.byID[b.ID] = *b
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id int64) (Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return Book{}, ErrNotFound
	}
	return b, nil
}

func (r *memRepo) FindAll(_ context.Context) ([]Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Book, 0, len(r.byID))
	for id := int64(1); id <= r.nextID; id++ {
		if b, ok := r.byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteByID(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func effectiveJava() CreateRequest {
	return CreateRequest{
		ISBN:          "9780134685991",
		Title:         "Effective Java",
		Author:        "Joshua Bloch",
		PublishedDate: time.Date(2018, 1, 6, 0, 0, 0, 0, time.UTC),
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the request fields with the cover thumbnail", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := newMemRepo()
		svc := NewService(repo, provider, "")

		req := effectiveJava()
		provider.EXPECT().FetchByISBN(gomock.Any(), req.ISBN).Return(&openlibrary.Edition{
			Title:      "Effective Java",
			Publishers: []string{"Addison-Wesley"},
			Covers:     openlibrary.Covers{{ID: 8739161}},
		}, nil)

		id, err := svc.Create(ctx, req)
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, req.ISBN, got.ISBN)
		assert.Equal(t, req.Title, got.Title)
		assert.Equal(t, req.Author, got.Author)
		assert.True(t, req.PublishedDate.Equal(got.PublishedDate))
		assert.Equal(t, StatusAvailable, got.Status)
		assert.Equal(t, "Addison-Wesley", got.Publisher)
		require.NotNil(t, got.ThumbnailURL)
		assert.Contains(t, *got.ThumbnailURL, "8739161")
		assert.True(t, strings.HasSuffix(*got.ThumbnailURL, "/8739161-L.jpg"))
	})

	t.Run("no cover leaves the thumbnail unset", func(t *testing.T) {
		for name, covers := range map[string]openlibrary.Covers{
			"absent": nil,
			"empty":  {},
		} {
			t.Run(name, func(t *testing.T) {
				ctrl := gomock.NewController(t)
				provider := NewMockMetadataProvider(ctrl)
				repo := newMemRepo()
				svc := NewService(repo, provider, "")

				provider.EXPECT().FetchByISBN(gomock.Any(), gomock.Any()).
					Return(&openlibrary.Edition{Covers: covers}, nil)

				id, err := svc.Create(ctx, effectiveJava())
				require.NoError(t, err)

				got, err := repo.FindByID(ctx, id)
				require.NoError(t, err)
				assert.Nil(t, got.ThumbnailURL)
			})
		}
	})

	t.Run("duplicate isbn fails without a write", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := newMemRepo()
		svc := NewService(repo, provider, "")

		existing := &Book{ISBN: "9780134685991", Title: "Effective Java"}
		require.NoError(t, repo.Save(ctx, existing))
		before, _ := repo.FindAll(ctx)
		saves := repo.saves

		_, err := svc.Create(ctx, effectiveJava())

		var dup *DuplicateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "9780134685991", dup.ISBN)
		assert.ErrorIs(t, err, ErrDuplicate)

		after, _ := repo.FindAll(ctx)
		assert.Equal(t, before, after)
		assert.Equal(t, saves, repo.saves)
	})

	t.Run("provider not found is returned unchanged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := newMemRepo()
		svc := NewService(repo, provider, "")

		providerErr := &openlibrary.Error{Kind: openlibrary.KindNotFound, ISBN: "9780134685991", StatusCode: 404}
		provider.EXPECT().FetchByISBN(gomock.Any(), "9780134685991").Return(nil, providerErr)

		_, err := svc.Create(ctx, effectiveJava())
		assert.Same(t, providerErr, err)
		assert.ErrorIs(t, err, openlibrary.ErrNotFound)
		assert.Zero(t, repo.len())
		assert.Zero(t, repo.saves)
	})

	t.Run("provider unavailable is returned unchanged", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := newMemRepo()
		svc := NewService(repo, provider, "")

		providerErr := &openlibrary.Error{Kind: openlibrary.KindUnavailable, ISBN: "9780134685991", StatusCode: 503}
		provider.EXPECT().FetchByISBN(gomock.Any(), gomock.Any()).Return(nil, providerErr)

		_, err := svc.Create(ctx, effectiveJava())
		assert.Same(t, providerErr, err)
		assert.ErrorIs(t, err, openlibrary.ErrUnavailable)
		assert.Zero(t, repo.len())
	})

	t.Run("empty isbn is rejected before any call", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, provider, "")

		req := effectiveJava()
		req.ISBN = "   "
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidISBN)
	})

	t.Run("store conflict becomes a duplicate error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, provider, "")

		gomock.InOrder(
			repo.EXPECT().FindByISBN(gomock.Any(), "9780134685991").Return(Book{}, ErrNotFound),
			provider.EXPECT().FetchByISBN(gomock.Any(), "9780134685991").Return(&openlibrary.Edition{}, nil),
			repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(ErrISBNConflict),
		)

		_, err := svc.Create(ctx, effectiveJava())
		var dup *DuplicateError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "9780134685991", dup.ISBN)
	})

	t.Run("lookup failure is wrapped and skips the provider", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, provider, "")

		dbErr := errors.New("connection reset")
		repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, dbErr)

		_, err := svc.Create(ctx, effectiveJava())
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrDuplicate)
	})

	t.Run("save failure is wrapped", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := NewMockRepository(ctrl)
		svc := NewService(repo, provider, "")

		dbErr := errors.New("disk full")
		repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, ErrNotFound)
		provider.EXPECT().FetchByISBN(gomock.Any(), gomock.Any()).Return(&openlibrary.Edition{}, nil)
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(dbErr)

		_, err := svc.Create(ctx, effectiveJava())
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, ErrDuplicate)
	})

	t.Run("trims the isbn before use", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := newMemRepo()
		svc := NewService(repo, provider, "")

		provider.EXPECT().FetchByISBN(gomock.Any(), "9780134685991").Return(&openlibrary.Edition{}, nil)

		req := effectiveJava()
		req.ISBN = " 9780134685991 "
		id, err := svc.Create(ctx, req)
		require.NoError(t, err)

		got, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "9780134685991", got.ISBN)
	})

	t.Run("uses the configured covers host", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		provider := NewMockMetadataProvider(ctrl)
		repo := newMemRepo()
		svc := NewService(repo, provider, "http://covers.test/")

		provider.EXPECT().FetchByISBN(gomock.Any(), gomock.Any()).
			Return(&openlibrary.Edition{Covers: openlibrary.Covers{{ID: 42}}}, nil)

		id, err := svc.Create(ctx, effectiveJava())
		require.NoError(t, err)

		got, _ := repo.FindByID(ctx, id)
		require.NotNil(t, got.ThumbnailURL)
		assert.Equal(t, "http://covers.test/b/id/42-L.jpg", *got.ThumbnailURL)
	})
}

func TestService_CreateConcurrentSameISBN(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := NewMockMetadataProvider(ctrl)
	repo := newMemRepo()
	svc := NewService(repo, provider, "")

	// Both calls pass the lookup before either saves, so the store is what
	// has to pick the winner.
	var arrived sync.WaitGroup
	arrived.Add(2)
	provider.EXPECT().FetchByISBN(gomock.Any(), "9780134685991").Times(2).
		DoAndReturn(func(context.Context, string) (*openlibrary.Edition, error) {
			arrived.Done()
			arrived.Wait()
			return &openlibrary.Edition{Covers: openlibrary.Covers{{ID: 8739161}}}, nil
		})

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), effectiveJava())
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicate):
			var d *DuplicateError
			require.ErrorAs(t, err, &d)
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
	assert.Equal(t, 1, repo.len())
}

func TestService_GetListDelete(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, NewMockMetadataProvider(ctrl), "")

	b := Book{ID: 7, ISBN: "9780134685991", Title: "Effective Java", Status: StatusAvailable}

	repo.EXPECT().FindByID(gomock.Any(), int64(7)).Return(b, nil)
	got, err := svc.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	repo.EXPECT().FindByID(gomock.Any(), int64(8)).Return(Book{}, ErrNotFound)
	_, err = svc.GetByID(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)

	repo.EXPECT().FindAll(gomock.Any()).Return([]Book{b}, nil)
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	repo.EXPECT().DeleteByID(gomock.Any(), int64(7)).Return(true, nil)
	deleted, err := svc.Delete(ctx, 7)
	require.NoError(t, err)
	assert.True(t, deleted)

	repo.EXPECT().DeleteByID(gomock.Any(), int64(7)).Return(false, nil)
	deleted, err = svc.Delete(ctx, 7)
	require.NoError(t, err)
	assert.False(t, deleted)
}
