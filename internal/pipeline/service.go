// Package pipeline coordinates the extraction race, the guardrails, and the
// cache merge writes for each logical request.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pagelens/reader/internal/cache"
	"github.com/pagelens/reader/internal/extract"
	"github.com/pagelens/reader/internal/guard"
	"github.com/pagelens/reader/internal/reader"
	"github.com/pagelens/reader/internal/telemetry"
)

// Config carries the coordinator thresholds. Defaults preserve the hand-tuned
// production values.
type Config struct {
	// QualityLength is the text length a race result must exceed to win
	// immediately.
	QualityLength int
	// EnhancementRatio is the factor by which a sibling record must exceed
	// the known length to count as an upgrade.
	EnhancementRatio float64
	// ExtractTimeout bounds each individual extractor's upstream work.
	ExtractTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QualityLength <= 0 {
		c.QualityLength = 500
	}
	if c.EnhancementRatio <= 0 {
		c.EnhancementRatio = 1.4
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = 30 * time.Second
	}
	return c
}

// Service owns the per-request orchestration. It is constructed once at
// process start and injected into the HTTP layer.
type Service struct {
	extractors map[reader.Source]extract.Extractor
	store      *cache.Store
	blocklist  *guard.Blocklist
	cfg        Config
	logger     *zap.Logger
}

// NewService wires the coordinator.
func NewService(
	extractors []extract.Extractor,
	store *cache.Store,
	blocklist *guard.Blocklist,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	bySource := make(map[reader.Source]extract.Extractor, len(extractors))
	for _, ex := range extractors {
		bySource[ex.Source()] = ex
	}
	return &Service{
		extractors: bySource,
		store:      store,
		blocklist:  blocklist,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

// Result is what the coordinator hands to the HTTP layer.
type Result struct {
	Article *reader.Article
	Source  reader.Source
	// FromCache marks a fresh cache hit served without any network call.
	FromCache bool
	// MayHaveEnhanced hints that a slower source may produce substantially
	// more content shortly; it triggers the enhancement poller.
	MayHaveEnhanced bool
}

// FetchSource runs exactly one strategy, serving a fresh cache hit when one
// exists.
func (s *Service) FetchSource(ctx context.Context, rawURL string, source reader.Source) (*Result, error) {
	req, err := reader.NewExtractionRequest(rawURL, source)
	if err != nil {
		return nil, err
	}
	if blockErr := s.blocklist.Check(req.Hostname); blockErr != nil {
		return nil, blockErr
	}

	if rec := s.loadSoft(ctx, source, rawURL); s.store.Fresh(rec) {
		telemetry.CountCache("read", "hit")
		return &Result{
			Article:         &rec.Article,
			Source:          source,
			FromCache:       true,
			MayHaveEnhanced: source == reader.SourceDirect,
		}, nil
	}
	telemetry.CountCache("read", "miss")

	art, err := s.extractOne(ctx, req)
	if err != nil {
		return nil, reader.AsAppError(err)
	}
	s.mergeWrite(ctx, source, rawURL, art)
	return &Result{
		Article:         art,
		Source:          source,
		MayHaveEnhanced: source == reader.SourceDirect,
	}, nil
}

// extractOne runs one extractor under its own timeout and records telemetry.
func (s *Service) extractOne(ctx context.Context, req reader.ExtractionRequest) (*reader.Article, error) {
	ex, ok := s.extractors[req.Source]
	if !ok {
		return nil, reader.NewValidationError("no extractor for source " + string(req.Source))
	}
	exCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractTimeout)
	defer cancel()

	start := time.Now()
	art, err := ex.Extract(exCtx, req)
	telemetry.ObserveExtractionDuration(string(req.Source), time.Since(start))
	if err != nil {
		telemetry.CountExtraction(string(req.Source), "failure")
		return nil, err
	}
	telemetry.CountExtraction(string(req.Source), "success")
	telemetry.AddFetchBytes(string(req.Source), len(art.HTMLContent))
	return art, nil
}

// loadSoft treats cache-read errors as misses; a broken store never fails a
// request.
func (s *Service) loadSoft(ctx context.Context, source reader.Source, rawURL string) *reader.CacheRecord {
	rec, err := s.store.Load(ctx, source, rawURL)
	if err != nil {
		telemetry.CountCache("read", "error")
		s.logger.Warn("cache read failed, treating as miss",
			zap.String("source", string(source)), zap.Error(err))
		return nil
	}
	return rec
}

// mergeWrite merges a successful fetch into the cache. Write failures are
// soft: the freshly-fetched article is still served.
func (s *Service) mergeWrite(ctx context.Context, source reader.Source, rawURL string, art *reader.Article) {
	_, replaced, err := s.store.Merge(ctx, source, rawURL, art)
	if err != nil {
		telemetry.CountCache("write", "error")
		s.logger.Warn("cache write failed after successful fetch",
			zap.String("source", string(source)), zap.Error(err))
		return
	}
	if replaced {
		telemetry.CountCache("write", "replace")
	} else {
		telemetry.CountCache("write", "keep")
	}
}
