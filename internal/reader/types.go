// Package reader defines core types shared across subsystems.
package reader

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// TextLength is the quality metric used throughout the pipeline: the
// character count of an article's plain text.
func TextLength(s string) int {
	return utf8.RuneCountInString(s)
}

// Source identifies an extraction strategy.
type Source string

// Source values used in cache keys and API payloads.
const (
	SourceDirect   Source = "direct"
	SourceManaged  Source = "managed"
	SourceArchived Source = "archived"

	// SourceClient is the key under which client-supplied, pre-extracted
	// articles are cached. It never participates in the race.
	SourceClient Source = "client"
)

// RaceSources lists the strategies the coordinator runs concurrently,
// in cache-probe order.
var RaceSources = []Source{SourceDirect, SourceManaged, SourceArchived}

// ParseSource validates a source string from an API payload.
func ParseSource(raw string) (Source, error) {
	switch Source(raw) {
	case SourceDirect, SourceManaged, SourceArchived:
		return Source(raw), nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown source %q", raw))
}

// ExtractionRequest captures one logical fetch. Hostname is extracted once
// and reused for blocklist and cache-key purposes.
type ExtractionRequest struct {
	URL      string
	Hostname string
	Source   Source
}

// NewExtractionRequest parses and validates the target URL.
func NewExtractionRequest(rawURL string, source Source) (ExtractionRequest, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return ExtractionRequest{}, NewValidationError(fmt.Sprintf("invalid URL %q", rawURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ExtractionRequest{}, NewValidationError(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	return ExtractionRequest{
		URL:      rawURL,
		Hostname: strings.ToLower(u.Hostname()),
		Source:   source,
	}, nil
}

// Article is the normalized extraction result produced by every strategy.
type Article struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	TextContent   string `json:"textContent"`
	Length        int    `json:"length"`
	SiteName      string `json:"siteName"`
	Byline        string `json:"byline,omitempty"`
	PublishedTime string `json:"publishedTime,omitempty"`
	Image         string `json:"image,omitempty"`
	Lang          string `json:"lang,omitempty"`
	Dir           string `json:"dir,omitempty"`
	HTMLContent   string `json:"htmlContent,omitempty"`
}

// Validate enforces the Article invariants at creation time.
func (a *Article) Validate() error {
	if a == nil {
		return NewValidationError("nil article")
	}
	if a.TextContent == "" || a.Length <= 0 {
		return NewValidationError("article has no text content")
	}
	if a.Length != TextLength(a.TextContent) {
		return NewValidationError("article length does not match text content")
	}
	return nil
}

// CacheRecord is the stored form of an Article, replaced wholesale by the
// merge policy and never partially updated.
type CacheRecord struct {
	Article Article `json:"article"`
	URL     string  `json:"url"`
	Source  Source  `json:"source"`
	// BypassMethod records a previously-observed paywall bypass
	// classification, carried along on replacement.
	BypassMethod string `json:"bypassMethod,omitempty"`
}

// CacheMetadata is the lightweight projection stored next to the compressed
// record so callers can list entries without decompression.
type CacheMetadata struct {
	Title         string `json:"title"`
	SiteName      string `json:"siteName"`
	Length        int    `json:"length"`
	Byline        string `json:"byline,omitempty"`
	PublishedTime string `json:"publishedTime,omitempty"`
}

// Metadata projects the record for the fast-listing entry.
func (r *CacheRecord) Metadata() CacheMetadata {
	return CacheMetadata{
		Title:         r.Article.Title,
		SiteName:      r.Article.SiteName,
		Length:        r.Article.Length,
		Byline:        r.Article.Byline,
		PublishedTime: r.Article.PublishedTime,
	}
}

// CacheKey builds the opaque store key for a (source, url) pair.
func CacheKey(source Source, rawURL string) string {
	return string(source) + ":" + rawURL
}
