// Package wiki resolves descriptive content for a car model from an
// encyclopedia source: it builds a search term, fetches parsed article HTML,
// strips non-content structure, retries with a narrower term when the page
// title is missing, and caches successful results with a time-to-live.
package wiki

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying upstream outcomes.
var (
	// ErrMissingTitle means the source has no page under the search term.
	// This is the only failure eligible for the model-only fallback.
	ErrMissingTitle = errors.New("no page with that title")
	// ErrNoContent means the page exists but carried no parseable text.
	ErrNoContent = errors.New("no parseable content")
	// ErrNotFound wraps any final failure after the fallback, if attempted.
	ErrNotFound = errors.New("article not found")
)

// APIError is a structured error reported by the content source itself.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wiki api error %s: %s", e.Code, e.Info)
}

// ParseResult is the raw parsed-article payload from the content source.
type ParseResult struct {
	Title        string // resolved title, after redirects
	DisplayTitle string // human-facing title, may include formatting
	Text         string // parsed article HTML, uncleaned
	ThumbnailURL string // representative image, may be empty
}

// Details is the cleaned result served to callers and cached.
type Details struct {
	HTMLContent string `json:"htmlContent"`
	ImageURL    string `json:"imageUrl"`
	PageURL     string `json:"wikiPageUrl"`
	Title       string `json:"actualTitle"`
}
