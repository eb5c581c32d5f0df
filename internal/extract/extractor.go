// Package extract turns URLs into normalized articles. Each strategy adapts
// its heterogeneous upstream payload into the single Article shape so nothing
// downstream branches on source.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/microcosm-cc/bluemonday"

	"github.com/pagelens/reader/internal/guard"
	"github.com/pagelens/reader/internal/reader"
)

// Extractor is one extraction strategy.
type Extractor interface {
	Source() reader.Source
	Extract(ctx context.Context, req reader.ExtractionRequest) (*reader.Article, error)
}

var sanitizer = bluemonday.UGCPolicy()

// articleParts is the raw material each strategy hands to buildArticle.
type articleParts struct {
	Title         string
	Content       string
	TextContent   string
	SiteName      string
	Byline        string
	PublishedTime string
	Image         string
	Lang          string
	RawHTML       string
	// DocTitle is the document <title>, used as a title fallback.
	DocTitle string
	Hostname string
	SourceID string
}

// buildArticle normalizes extractor output into an Article, enforcing the
// invariants every strategy shares: sanitized HTML, non-empty text, the
// length metric, and the title/siteName/dir fallbacks.
func buildArticle(p articleParts) (*reader.Article, error) {
	content := sanitizer.Sanitize(p.Content)
	if content == "" {
		return nil, reader.NewParseError(p.SourceID, "extraction yielded no content")
	}
	if p.TextContent == "" {
		return nil, reader.NewParseError(p.SourceID, "extraction yielded no text")
	}

	title := p.Title
	if title == "" {
		title = p.DocTitle
	}
	if title == "" {
		title = p.Hostname
	}
	siteName := p.SiteName
	if siteName == "" {
		siteName = p.Hostname
	}

	art := &reader.Article{
		Title:         title,
		Content:       content,
		TextContent:   p.TextContent,
		Length:        reader.TextLength(p.TextContent),
		SiteName:      siteName,
		Byline:        p.Byline,
		PublishedTime: p.PublishedTime,
		Image:         p.Image,
		Lang:          p.Lang,
		Dir:           reader.DetectDirection(p.Lang, p.TextContent),
		HTMLContent:   p.RawHTML,
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return art, nil
}

// mapFetchError folds a transport failure into the closed error union,
// keeping query strings out of every message.
func mapFetchError(err error, status int) *reader.AppError {
	if guard.IsTooLarge(err) {
		return reader.NewNetworkError(err.Error(), 413)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return reader.NewTimeoutError(fmt.Sprintf("%s %s timed out", uerr.Op, guard.RedactURL(uerr.URL)))
		}
		return reader.NewNetworkError(
			fmt.Sprintf("%s %s: %v", uerr.Op, guard.RedactURL(uerr.URL), uerr.Err), status)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return reader.NewTimeoutError("upstream fetch timed out")
	}
	return reader.NewNetworkError(err.Error(), status)
}
