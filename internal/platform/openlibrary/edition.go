package openlibrary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Edition matches isbn/{isbn}.json (an edition record).
type Edition struct {
	Key            string      `json:"key"`
	Title          string      `json:"title"`
	ISBN13         []string    `json:"isbn_13"`
	ISBN10         []string    `json:"isbn_10"`
	PublishDate    string      `json:"publish_date"`
	Publishers     []string    `json:"publishers"`
	Authors        []AuthorRef `json:"authors"`
	NumberOfPages  *int        `json:"number_of_pages"`
	PhysicalFormat *string     `json:"physical_format"`
	Description    *Text       `json:"description"`
	Subjects       []string    `json:"subjects"`
	Covers         Covers      `json:"covers"`
}

type AuthorRef struct {
	Key string `json:"key"`
}

// Text is a free-text field that Open Library serves either as a plain
// string or as {"type": "/type/text", "value": "..."}.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return fmt.Errorf("text field: %w", err)
	}
	*t = Text(typed.Value)
	return nil
}

// Cover is one cover image reference. Size is empty when the provider sent
// a bare list of ids.
type Cover struct {
	Size string
	ID   int
}

// Covers is the optional cover art of an edition. A nil or empty value means
// the edition has no cover.
type Covers []Cover

// UnmarshalJSON accepts the list form ([8739161, ...]) as well as a
// size-label object ({"medium": 8739161}). Non-positive ids mark deleted
// covers and are dropped.
func (c *Covers) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}

	switch data[0] {
	case '[':
		var ids []int
		if err := json.Unmarshal(data, &ids); err != nil {
			return fmt.Errorf("covers list: %w", err)
		}
		out := make(Covers, 0, len(ids))
		for _, id := range ids {
			if id > 0 {
				out = append(out, Cover{ID: id})
			}
		}
		*c = out
	case '{':
		var bySize map[string]int
		if err := json.Unmarshal(data, &bySize); err != nil {
			return fmt.Errorf("covers map: %w", err)
		}
		out := make(Covers, 0, len(bySize))
		for size, id := range bySize {
			if id > 0 {
				out = append(out, Cover{Size: size, ID: id})
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Size < out[j].Size })
		*c = out
	default:
		return fmt.Errorf("covers: unexpected JSON %q", data)
	}
	return nil
}

// sizeRank orders labelled sizes, larger first. Unlabelled and unknown
// sizes rank last and keep their original order.
var sizeRank = map[string]int{
	"large":  0,
	"l":      0,
	"medium": 1,
	"m":      1,
	"small":  2,
	"s":      2,
}

// ID returns the preferred cover id: the largest labelled size, otherwise
// the first entry.
func (c Covers) ID() (int, bool) {
	if len(c) == 0 {
		return 0, false
	}
	best := -1
	bestRank := len(sizeRank)
	for i, cover := range c {
		rank, ok := sizeRank[strings.ToLower(cover.Size)]
		if !ok {
			rank = len(sizeRank)
		}
		if best < 0 || rank < bestRank {
			best, bestRank = i, rank
		}
	}
	return c[best].ID, true
}
