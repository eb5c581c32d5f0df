package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pagelens/reader/internal/fetch"
	"github.com/pagelens/reader/internal/reader"
	"github.com/pagelens/reader/internal/telemetry"
)

// minReadabilityChars is the text length under which the readability step of
// the fallback chain is considered a failure and the DOM heuristic runs.
const minReadabilityChars = 100

// chain is the managed fallback ladder: Diffbot API, then raw fetch +
// readability, then the DOM-heuristic last resort. Every step's failure is
// recoverable locally; only the final step's failure surfaces.
type chain struct {
	diffbot  *DiffbotClient
	fetcher  *fetch.Fetcher
	logger   *zap.Logger
	sourceID string
}

func (c *chain) run(ctx context.Context, target string, req reader.ExtractionRequest) (*reader.Article, error) {
	if c.diffbot != nil {
		obj, err := c.diffbot.Article(ctx, target)
		if err == nil {
			art, buildErr := buildArticle(obj.parts(req.Hostname, c.sourceID))
			if buildErr == nil {
				return art, nil
			}
			err = buildErr
		}
		c.logger.Debug("managed API failed, falling back",
			zap.String("source", c.sourceID), zap.Error(err))
	} else {
		telemetry.CountManagedDegraded(c.sourceID)
	}

	resp, err := c.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, mapFetchError(err, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, reader.NewNetworkError(
			fmt.Sprintf("upstream returned %d", resp.StatusCode), resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, reader.NewParseError(c.sourceID, fmt.Sprintf("parse document: %v", err))
	}
	// A client-rendered shell cannot be extracted without a browser; fail
	// fast instead of burning the remaining fallback attempts.
	if isClientRendered(doc) {
		return nil, reader.NewParseError(c.sourceID,
			"page renders client-side and has no extractable markup; "+
				"submit pre-extracted content through the client article endpoint")
	}

	if art, rerr := readabilityParts(resp.Body, target, req.Hostname, c.sourceID); rerr == nil {
		if art.Length >= minReadabilityChars {
			return art, nil
		}
		c.logger.Debug("readability result too short, trying DOM heuristic",
			zap.String("source", c.sourceID), zap.Int("length", art.Length))
	}

	art, err := domHeuristicExtract(doc, req.Hostname, c.sourceID)
	if err != nil {
		return nil, err
	}
	art.HTMLContent = string(resp.Body)
	return art, nil
}

// Managed extracts through the third-party extraction API with local
// fallbacks.
type Managed struct {
	chain chain
}

// NewManaged builds the managed extractor. diffbot may be nil, in which case
// the strategy degrades straight to its local fallback chain.
func NewManaged(diffbot *DiffbotClient, fetcher *fetch.Fetcher, logger *zap.Logger) *Managed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Managed{chain: chain{
		diffbot:  diffbot,
		fetcher:  fetcher,
		logger:   logger,
		sourceID: string(reader.SourceManaged),
	}}
}

// Source implements Extractor.
func (m *Managed) Source() reader.Source { return reader.SourceManaged }

// Extract implements Extractor.
func (m *Managed) Extract(ctx context.Context, req reader.ExtractionRequest) (*reader.Article, error) {
	return m.chain.run(ctx, req.URL, req)
}

// Archived runs the managed chain against a historical snapshot of the URL,
// routed through the outbound proxy.
type Archived struct {
	chain    chain
	template string
}

// DefaultArchiveTemplate targets the newest snapshot of a URL.
const DefaultArchiveTemplate = "https://archive.ph/newest/%s"

// NewArchived builds the archived extractor. proxied must be a fetcher routed
// through the outbound proxy; pass nil when no proxy is configured and
// Extract will fail hard with a PROXY_ERROR.
func NewArchived(diffbot *DiffbotClient, proxied *fetch.Fetcher, template string, logger *zap.Logger) *Archived {
	if logger == nil {
		logger = zap.NewNop()
	}
	if template == "" {
		template = DefaultArchiveTemplate
	}
	return &Archived{
		chain: chain{
			diffbot:  diffbot,
			fetcher:  proxied,
			logger:   logger,
			sourceID: string(reader.SourceArchived),
		},
		template: template,
	}
}

// Source implements Extractor.
func (a *Archived) Source() reader.Source { return reader.SourceArchived }

// Extract implements Extractor.
func (a *Archived) Extract(ctx context.Context, req reader.ExtractionRequest) (*reader.Article, error) {
	if a.chain.fetcher == nil {
		return nil, reader.NewProxyError("archived source requires an outbound proxy, none configured")
	}
	snapshot := fmt.Sprintf(a.template, req.URL)
	return a.chain.run(ctx, snapshot, req)
}
