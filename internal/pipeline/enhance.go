package pipeline

import (
	"context"

	"github.com/pagelens/reader/internal/reader"
	"github.com/pagelens/reader/internal/telemetry"
)

// Enhancement reports whether a substantially longer version of
// already-returned content exists in the cache.
type Enhancement struct {
	Enhanced bool
	Source   reader.Source
	Length   int
	Article  *reader.Article
}

// Enhance scans the sibling cache keys for a record more than the configured
// ratio longer than what the caller already has. It performs no network
// fetch, and reports "no enhancement" rather than an error when nothing
// qualifies.
func (s *Service) Enhance(ctx context.Context, rawURL string, currentLength int, currentSource reader.Source) (*Enhancement, error) {
	if _, err := reader.NewExtractionRequest(rawURL, currentSource); err != nil {
		return nil, err
	}
	if currentLength < 0 {
		return nil, reader.NewValidationError("current length must be non-negative")
	}

	threshold := int(float64(currentLength) * s.cfg.EnhancementRatio)
	var (
		bestSource reader.Source
		bestLength int
	)
	for _, source := range reader.RaceSources {
		if source == currentSource {
			continue
		}
		meta, err := s.store.LoadMetadata(ctx, source, rawURL)
		if err != nil {
			return nil, reader.AsAppError(err)
		}
		if meta == nil || meta.Length <= threshold {
			continue
		}
		if meta.Length > bestLength {
			bestSource = source
			bestLength = meta.Length
		}
	}

	if bestLength == 0 {
		return &Enhancement{Enhanced: false}, nil
	}
	rec, err := s.store.Load(ctx, bestSource, rawURL)
	if err != nil {
		return nil, reader.AsAppError(err)
	}
	if rec == nil {
		// Metadata and record can drift across concurrent writers; drift is
		// reported as no enhancement, never as an error.
		return &Enhancement{Enhanced: false}, nil
	}
	telemetry.CountCache("enhance", "hit")
	return &Enhancement{
		Enhanced: true,
		Source:   bestSource,
		Length:   rec.Article.Length,
		Article:  &rec.Article,
	}, nil
}

// LoadClient returns the client-supplied article cached for url, or nil when
// none was ingested.
func (s *Service) LoadClient(ctx context.Context, rawURL string) (*reader.Article, error) {
	if _, err := reader.NewExtractionRequest(rawURL, reader.SourceClient); err != nil {
		return nil, err
	}
	rec, err := s.store.Load(ctx, reader.SourceClient, rawURL)
	if err != nil {
		return nil, reader.AsAppError(err)
	}
	if rec == nil {
		return nil, nil
	}
	return &rec.Article, nil
}

// SaveClient merges a client-supplied, pre-extracted article into the cache
// under the client source key and returns whichever article the merge kept.
func (s *Service) SaveClient(ctx context.Context, rawURL string, art *reader.Article) (*reader.Article, error) {
	if _, err := reader.NewExtractionRequest(rawURL, reader.SourceClient); err != nil {
		return nil, err
	}
	if art == nil || art.TextContent == "" {
		return nil, reader.NewValidationError("article text content is required")
	}
	// Re-derive the invariant fields rather than trusting the client.
	art.Length = reader.TextLength(art.TextContent)
	if art.Dir == "" {
		art.Dir = reader.DetectDirection(art.Lang, art.TextContent)
	}
	if err := art.Validate(); err != nil {
		return nil, reader.AsAppError(err)
	}

	stored, _, err := s.store.Merge(ctx, reader.SourceClient, rawURL, art)
	if err != nil {
		return nil, reader.AsAppError(err)
	}
	return &stored.Article, nil
}
