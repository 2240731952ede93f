package service

import (
	"strings"

	"socialhub/internal/models"
)

// URLBuilder turns stored relative media paths into absolute URLs.
type URLBuilder struct {
	baseURL string
}

func NewURLBuilder(baseURL string) *URLBuilder {
	return &URLBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Absolute prefixes p with the base URL. Empty paths and paths that are
// already absolute http(s) URLs are returned unchanged.
func (b *URLBuilder) Absolute(p string) string {
	if p == "" || strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if b == nil || b.baseURL == "" {
		return p
	}
	return b.baseURL + "/" + strings.TrimLeft(p, "/")
}

func (b *URLBuilder) author(a models.AuthorSummary) *models.AuthorSummary {
	a.Photo = b.Absolute(a.Photo)
	return &a
}
