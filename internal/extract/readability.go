package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/pagelens/reader/internal/fetch"
	"github.com/pagelens/reader/internal/reader"
)

// Direct fetches the URL with a browser-like signature and isolates the
// article body with the readability algorithm.
type Direct struct {
	fetcher *fetch.Fetcher
	logger  *zap.Logger
}

// NewDirect builds the direct extractor.
func NewDirect(fetcher *fetch.Fetcher, logger *zap.Logger) *Direct {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Direct{fetcher: fetcher, logger: logger}
}

// Source implements Extractor.
func (d *Direct) Source() reader.Source { return reader.SourceDirect }

// Extract implements Extractor.
func (d *Direct) Extract(ctx context.Context, req reader.ExtractionRequest) (*reader.Article, error) {
	resp, err := d.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, mapFetchError(err, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, reader.NewNetworkError(
			fmt.Sprintf("upstream returned %d", resp.StatusCode), resp.StatusCode)
	}

	art, err := readabilityParts(resp.Body, req.URL, req.Hostname, string(reader.SourceDirect))
	if err != nil {
		return nil, err
	}
	return art, nil
}

// readabilityParts runs the readability algorithm over html and assembles the
// normalized article, retaining the raw page for source inspection.
func readabilityParts(html []byte, pageURL, hostname, sourceID string) (*reader.Article, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, reader.NewValidationError(fmt.Sprintf("invalid URL %q", pageURL))
	}
	art, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		return nil, reader.NewParseError(sourceID, fmt.Sprintf("readability failed: %v", err))
	}

	var published string
	if art.PublishedTime != nil {
		published = art.PublishedTime.Format(time.RFC3339)
	}
	return buildArticle(articleParts{
		Title:         art.Title,
		Content:       art.Content,
		TextContent:   normalizeWhitespace(art.TextContent),
		SiteName:      art.SiteName,
		Byline:        art.Byline,
		PublishedTime: published,
		Image:         art.Image,
		Lang:          art.Language,
		RawHTML:       string(html),
		DocTitle:      docTitle(html),
		Hostname:      hostname,
		SourceID:      sourceID,
	})
}

// docTitle pulls the document <title> for the title fallback chain.
func docTitle(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
