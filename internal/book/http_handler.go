package book

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"shelfie/internal/httpx"
	"shelfie/internal/platform/openlibrary"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type createBookRequest struct {
	ISBN          string     `json:"isbn" validate:"required,isbn"`
	Title         string     `json:"title" validate:"required,max=255"`
	Author        string     `json:"author" validate:"required,max=255"`
	PublishedDate httpx.Date `json:"published_date" validate:"required,notfuture"`
}

type bookResponse struct {
	ID            int64      `json:"id"`
	ISBN          string     `json:"isbn"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	PublishedDate httpx.Date `json:"published_date"`
	Status        Status     `json:"status"`
	ThumbnailURL  *string    `json:"thumbnail_url"`
	Publisher     string     `json:"publisher,omitempty"`
	PageCount     *int       `json:"page_count,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func toResponse(b Book) bookResponse {
	return bookResponse{
		ID:            b.ID,
		ISBN:          b.ISBN,
		Title:         b.Title,
		Author:        b.Author,
		PublishedDate: httpx.Date{Time: b.PublishedDate},
		Status:        b.Status,
		ThumbnailURL:  b.ThumbnailURL,
		Publisher:     b.Publisher,
		PageCount:     b.PageCount,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// Create handles POST /v1/books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, httpx.ErrBodyTooLarge) {
			httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if details := httpx.ValidateStruct(req); details != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
		return
	}

	id, err := h.service.Create(r.Context(), CreateRequest{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Author:        req.Author,
		PublishedDate: req.PublishedDate.Time,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/books/"+strconv.FormatInt(id, 10))
	httpx.JSON(w, r, http.StatusCreated, map[string]int64{"id": id})
}

// List handles GET /v1/books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toResponse(b))
	}
	httpx.JSONWithMeta(w, r, http.StatusOK, out, map[string]any{"total": len(out)})
}

// Get handles GET /v1/books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSON(w, r, http.StatusOK, toResponse(b))
}

// Delete handles DELETE /v1/books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
		return
	}
	httpx.NoContent(w)
}

func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid book id",
			[]httpx.ErrorDetail{{Field: "id", Message: "id must be a positive integer"}})
		return 0, false
	}
	return id, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *DuplicateError
	switch {
	case errors.As(err, &dup):
		httpx.JSONError(w, r, http.StatusConflict, "BOOK_ALREADY_EXISTS", dup.Error(), nil)
	case errors.Is(err, ErrInvalidISBN):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, openlibrary.ErrNotFound):
		httpx.JSONError(w, r, http.StatusUnprocessableEntity, "METADATA_NOT_FOUND", "No Open Library edition for this ISBN", nil)
	case errors.Is(err, openlibrary.ErrUnavailable):
		httpx.JSONError(w, r, http.StatusBadGateway, "METADATA_UNAVAILABLE", "Metadata provider unavailable", nil)
	default:
		log.Error().Err(err).Str("request_id", httpx.RequestIDFrom(r)).Msg("book request failed")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
