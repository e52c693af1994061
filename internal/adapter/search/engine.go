// Package search provides the search engines queried for grounding texts
// and images.
package search

import (
	"context"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// Options narrows a search.
type Options struct {
	Categories []domain.SearchCategory
	// Domain restricts text results to a single site when set.
	Domain string
}

// Result holds what a search engine returned, unfiltered and untruncated.
type Result struct {
	Texts  []domain.TextSource
	Images []domain.ImageSource
}

// Engine is a search backend.
type Engine interface {
	Search(ctx context.Context, query string, opts Options) (Result, error)
}

// HasCategory reports whether opts includes c.
func (o Options) HasCategory(c domain.SearchCategory) bool {
	for _, cat := range o.Categories {
		if cat == c {
			return true
		}
	}
	return false
}
