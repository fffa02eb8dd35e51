// Package imagesearch is the stock-photo search capability used to pick
// story backgrounds.
package imagesearch

import (
	"context"
	"errors"
)

// ErrRateLimited is returned when the provider's quota is exhausted.
var ErrRateLimited = errors.New("image search rate limited")

const (
	Landscape = "landscape"
	Portrait  = "portrait"
	Squarish  = "squarish"
)

// Query is a single photo search.
type Query struct {
	Text          string
	PerPage       int
	Orientation   string
	ContentFilter string
}

// URLs holds the renditions of a photo.
type URLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

// Result is one photo returned by a search.
type Result struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	AltText     string `json:"alt_description"`
	URLs        URLs   `json:"urls"`
}

// BestURL returns the regular rendition, falling back to full.
func (r Result) BestURL() string {
	if r.URLs.Regular != "" {
		return r.URLs.Regular
	}
	return r.URLs.Full
}

// Searcher finds photos for a query.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}
