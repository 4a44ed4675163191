package book

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfie/internal/httpx"
	"shelfie/internal/platform/openlibrary"
)

func newTestHandler(t *testing.T) (*HTTPHandler, *MockRepository, *MockMetadataProvider) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	provider := NewMockMetadataProvider(ctrl)
	return NewHTTPHandler(NewService(repo, provider, "")), repo, provider
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var resp httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

const effectiveJavaBody = `{"isbn":"9780134685991","title":"Effective Java","author":"Joshua Bloch","published_date":"2018-01-06"}`

func TestHTTPHandler_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, repo, provider := newTestHandler(t)

		repo.EXPECT().FindByISBN(gomock.Any(), "9780134685991").Return(Book{}, ErrNotFound)
		provider.EXPECT().FetchByISBN(gomock.Any(), "9780134685991").
			Return(&openlibrary.Edition{Covers: openlibrary.Covers{{ID: 8739161}}}, nil)
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *Book) error {
			assert.Equal(t, "Effective Java", b.Title)
			assert.Equal(t, "Joshua Bloch", b.Author)
			assert.True(t, b.PublishedDate.Equal(time.Date(2018, 1, 6, 0, 0, 0, 0, time.UTC)))
			b.ID = 42
			return nil
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(effectiveJavaBody))

		handler.Create(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "/v1/books/42", w.Header().Get("Location"))
		assert.Contains(t, w.Body.String(), `"id":42`)
	})

	t.Run("validation error", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books",
			strings.NewReader(`{"isbn":"123","title":"","author":"A","published_date":"2999-01-01"}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

		fields := map[string]bool{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = true
		}
		assert.True(t, fields["isbn"])
		assert.True(t, fields["title"])
		assert.True(t, fields["published_date"])
	})

	t.Run("malformed body", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(`{"isbn":`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad date format", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/v1/books",
			strings.NewReader(`{"isbn":"9780134685991","title":"T","author":"A","published_date":"06/01/2018"}`))

		handler.Create(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	errorCases := []struct {
		name     string
		setup    func(repo *MockRepository, provider *MockMetadataProvider)
		wantCode int
		wantErr  string
	}{
		{
			name: "duplicate",
			setup: func(repo *MockRepository, _ *MockMetadataProvider) {
				repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{ID: 1}, nil)
			},
			wantCode: http.StatusConflict,
			wantErr:  "BOOK_ALREADY_EXISTS",
		},
		{
			name: "metadata not found",
			setup: func(repo *MockRepository, provider *MockMetadataProvider) {
				repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, ErrNotFound)
				provider.EXPECT().FetchByISBN(gomock.Any(), gomock.Any()).
					Return(nil, &openlibrary.Error{Kind: openlibrary.KindNotFound, StatusCode: 404})
			},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "METADATA_NOT_FOUND",
		},
		{
			name: "metadata unavailable",
			setup: func(repo *MockRepository, provider *MockMetadataProvider) {
				repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, ErrNotFound)
				provider.EXPECT().FetchByISBN(gomock.Any(), gomock.Any()).
					Return(nil, &openlibrary.Error{Kind: openlibrary.KindUnavailable, StatusCode: 503})
			},
			wantCode: http.StatusBadGateway,
			wantErr:  "METADATA_UNAVAILABLE",
		},
		{
			name: "storage failure",
			setup: func(repo *MockRepository, _ *MockMetadataProvider) {
				repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, context.DeadlineExceeded)
			},
			wantCode: http.StatusInternalServerError,
			wantErr:  "INTERNAL_ERROR",
		},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, repo, provider := newTestHandler(t)
			tc.setup(repo, provider)

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/books", strings.NewReader(effectiveJavaBody))

			handler.Create(w, r)

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Equal(t, tc.wantErr, decodeError(t, w).Error.Code)
		})
	}
}

func TestHTTPHandler_List(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, repo, _ := newTestHandler(t)
		repo.EXPECT().FindAll(gomock.Any()).Return([]Book{{
			ID:            1,
			ISBN:          "9780134685991",
			Title:         "Effective Java",
			PublishedDate: time.Date(2018, 1, 6, 0, 0, 0, 0, time.UTC),
			Status:        StatusAvailable,
		}}, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/v1/books", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"published_date":"2018-01-06"`)
		assert.Contains(t, w.Body.String(), `"total":1`)
	})

	t.Run("error", func(t *testing.T) {
		handler, repo, _ := newTestHandler(t)
		repo.EXPECT().FindAll(gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/v1/books", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, repo, _ := newTestHandler(t)
		thumb := "https://covers.openlibrary.org/b/id/8739161-L.jpg"
		repo.EXPECT().FindByID(gomock.Any(), int64(1)).Return(Book{ID: 1, ISBN: "9780134685991", ThumbnailURL: &thumb}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/books/1", nil)
		r.SetPathValue("id", "1")

		handler.Get(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "8739161-L.jpg")
	})

	t.Run("not found", func(t *testing.T) {
		handler, repo, _ := newTestHandler(t)
		repo.EXPECT().FindByID(gomock.Any(), int64(2)).Return(Book{}, ErrNotFound)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/v1/books/2", nil)
		r.SetPathValue("id", "2")

		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		for _, id := range []string{"abc", "0", "-3"} {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/books/"+id, nil)
			r.SetPathValue("id", id)

			handler.Get(w, r)

			assert.Equal(t, http.StatusBadRequest, w.Code, id)
		}
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		handler, repo, _ := newTestHandler(t)
		repo.EXPECT().DeleteByID(gomock.Any(), int64(5)).Return(true, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/v1/books/5", nil)
		r.SetPathValue("id", "5")

		handler.Delete(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("missing", func(t *testing.T) {
		handler, repo, _ := newTestHandler(t)
		repo.EXPECT().DeleteByID(gomock.Any(), int64(5)).Return(false, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodDelete, "/v1/books/5", nil)
		r.SetPathValue("id", "5")

		handler.Delete(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
