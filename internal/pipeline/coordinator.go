package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pagelens/reader/internal/reader"
)

type raceOutcome struct {
	source  reader.Source
	article *reader.Article
	err     error
}

// FetchAuto serves a request with no explicit source preference: first a
// sequential cache probe across all three source keys, then a concurrent race
// of every extractor. The first quality result wins; the losers keep running
// to populate the cache.
func (s *Service) FetchAuto(ctx context.Context, rawURL string) (*Result, error) {
	req, err := reader.NewExtractionRequest(rawURL, "")
	if err != nil {
		return nil, err
	}
	if blockErr := s.blocklist.Check(req.Hostname); blockErr != nil {
		return nil, blockErr
	}

	for _, source := range reader.RaceSources {
		if rec := s.loadSoft(ctx, source, rawURL); s.store.Fresh(rec) {
			return &Result{
				Article:         &rec.Article,
				Source:          source,
				FromCache:       true,
				MayHaveEnhanced: source == reader.SourceDirect,
			}, nil
		}
	}

	return s.race(ctx, req)
}

// race runs every strategy concurrently. Extractors run on a detached
// context so losers outlive the response and merge-write the cache exactly
// once per source.
func (s *Service) race(ctx context.Context, req reader.ExtractionRequest) (*Result, error) {
	detached := context.WithoutCancel(ctx)
	results := make(chan raceOutcome, len(reader.RaceSources))

	var (
		cachedMu      sync.Mutex
		cachedSources = make(map[reader.Source]bool, len(reader.RaceSources))
	)

	for _, source := range reader.RaceSources {
		srcReq := req
		srcReq.Source = source
		go func(source reader.Source, srcReq reader.ExtractionRequest) {
			art, err := s.extractOne(detached, srcReq)
			if err == nil {
				s.cacheOnce(detached, source, srcReq.URL, art, &cachedMu, cachedSources)
			}
			results <- raceOutcome{source: source, article: art, err: err}
		}(source, srcReq)
	}

	var (
		best     *raceOutcome
		failures []string
	)
	for range reader.RaceSources {
		var out raceOutcome
		select {
		case <-ctx.Done():
			return nil, reader.AsAppError(ctx.Err())
		case out = <-results:
		}

		if out.err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", out.source, out.err))
			continue
		}
		if out.article.Length > s.cfg.QualityLength {
			return &Result{
				Article:         out.article,
				Source:          out.source,
				MayHaveEnhanced: out.source == reader.SourceDirect,
			}, nil
		}
		if best == nil || out.article.Length > best.article.Length {
			o := out
			best = &o
		}
	}

	if best != nil {
		return &Result{
			Article:         best.article,
			Source:          best.source,
			MayHaveEnhanced: best.source == reader.SourceDirect,
		}, nil
	}
	return nil, reader.NewUnknownError("all sources failed: " + strings.Join(failures, "; "))
}

// cacheOnce merge-writes one successful race result, at most once per source
// within one request.
func (s *Service) cacheOnce(
	ctx context.Context,
	source reader.Source,
	rawURL string,
	art *reader.Article,
	mu *sync.Mutex,
	seen map[reader.Source]bool,
) {
	mu.Lock()
	already := seen[source]
	seen[source] = true
	mu.Unlock()
	if already {
		return
	}
	s.mergeWrite(ctx, source, rawURL, art)
	s.logger.Debug("race result cached",
		zap.String("source", string(source)), zap.Int("length", art.Length))
}
