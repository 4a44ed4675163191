package book

import (
	"fmt"
	"strings"

	"shelfie/internal/platform/openlibrary"
)

const DefaultCoversBaseURL = "https://covers.openlibrary.org"

// ThumbnailURL turns the edition's cover art into the large cover image URL
// on the covers host. It returns nil when the edition has no cover.
func ThumbnailURL(coversBaseURL string, covers openlibrary.Covers) *string {
	id, ok := covers.ID()
	if !ok {
		return nil
	}
	if coversBaseURL == "" {
		coversBaseURL = DefaultCoversBaseURL
	}
	u := fmt.Sprintf("%s/b/id/%d-L.jpg", strings.TrimRight(coversBaseURL, "/"), id)
	return &u
}
