package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pagelens/reader/internal/reader"
)

// StoreConfig carries the tuning knobs for freshness and the legacy
// truncation boundary. The values are hand-tuned and preserved for
// behavioral compatibility.
type StoreConfig struct {
	// MinFreshLength is the text length below which a cached record is not
	// servable as-is.
	MinFreshLength int
	// LegacyTruncationBytes is the byte boundary a historical bug capped
	// htmlContent at; records sitting exactly on it are suspect.
	LegacyTruncationBytes int
}

// Default thresholds applied when configuration leaves them unset.
const (
	DefaultMinFreshLength        = 4000
	DefaultLegacyTruncationBytes = 250000
)

// Store wraps a KV with the merge policy and the dual-key layout: the
// compressed full record plus an uncompressed metadata projection.
type Store struct {
	kv     KV
	cfg    StoreConfig
	logger *zap.Logger
}

// NewStore builds a Store around kv.
func NewStore(kv KV, cfg StoreConfig, logger *zap.Logger) *Store {
	if cfg.MinFreshLength <= 0 {
		cfg.MinFreshLength = DefaultMinFreshLength
	}
	if cfg.LegacyTruncationBytes <= 0 {
		cfg.LegacyTruncationBytes = DefaultLegacyTruncationBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, cfg: cfg, logger: logger}
}

func metaKey(key string) string {
	return "meta:" + key
}

// Load returns the stored record for (source, url), or nil on a miss.
// Decode failures are logged and reported as misses so a corrupt entry never
// fails a request.
func (s *Store) Load(ctx context.Context, source reader.Source, rawURL string) (*reader.CacheRecord, error) {
	key := reader.CacheKey(source, rawURL)
	stored, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	rec, err := decodeRecord(stored)
	if err != nil {
		s.logger.Warn("cache record undecodable, treating as miss",
			zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return rec, nil
}

// LoadMetadata returns the lightweight projection without decompression.
func (s *Store) LoadMetadata(ctx context.Context, source reader.Source, rawURL string) (*reader.CacheMetadata, error) {
	key := metaKey(reader.CacheKey(source, rawURL))
	stored, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	var meta reader.CacheMetadata
	if err := json.Unmarshal([]byte(stored), &meta); err != nil {
		s.logger.Warn("cache metadata undecodable, treating as miss",
			zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return &meta, nil
}

// Fresh reports whether a cached record is servable as-is: long enough, and
// not sitting at the legacy truncation boundary.
func (s *Store) Fresh(rec *reader.CacheRecord) bool {
	if rec == nil || rec.Article.Validate() != nil {
		return false
	}
	if rec.Article.Length <= s.cfg.MinFreshLength {
		return false
	}
	if len(rec.Article.HTMLContent) == s.cfg.LegacyTruncationBytes {
		return false
	}
	return true
}

// Merge applies the replacement policy for a newly-fetched article and writes
// the winner. It returns the record now stored and whether the new article
// replaced the previous one. Concurrent writers for the same key need no
// mutual exclusion: each reads, decides independently, and writes; every
// replacement is individually an improvement over some prior state.
func (s *Store) Merge(ctx context.Context, source reader.Source, rawURL string, art *reader.Article) (*reader.CacheRecord, bool, error) {
	if err := art.Validate(); err != nil {
		return nil, false, fmt.Errorf("merge candidate: %w", err)
	}

	existing, err := s.Load(ctx, source, rawURL)
	if err != nil {
		// A read failure must not block the write path; decide against nil.
		s.logger.Warn("cache read failed before merge", zap.Error(err))
		existing = nil
	}

	candidate := &reader.CacheRecord{
		Article: *art,
		URL:     rawURL,
		Source:  source,
	}
	if !s.shouldReplace(existing, candidate) {
		return existing, false, nil
	}
	if existing != nil && existing.BypassMethod != "" {
		candidate.BypassMethod = existing.BypassMethod
	}

	key := reader.CacheKey(source, rawURL)
	encoded, err := encodeRecord(candidate)
	if err != nil {
		return nil, false, fmt.Errorf("encode %q: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, encoded); err != nil {
		return nil, false, fmt.Errorf("write %q: %w", key, err)
	}

	meta, err := json.Marshal(candidate.Metadata())
	if err != nil {
		return nil, false, fmt.Errorf("encode metadata %q: %w", key, err)
	}
	if err := s.kv.Set(ctx, metaKey(key), string(meta)); err != nil {
		return nil, false, fmt.Errorf("write metadata %q: %w", key, err)
	}
	return candidate, true, nil
}

// shouldReplace is the 5-rule merge comparison. Records are replaced
// wholesale, never partially updated.
func (s *Store) shouldReplace(existing, candidate *reader.CacheRecord) bool {
	if existing == nil {
		return true
	}
	if existing.Article.Validate() != nil {
		return true
	}
	exHTML := existing.Article.HTMLContent
	newHTML := candidate.Article.HTMLContent
	if exHTML == "" && newHTML != "" {
		return true
	}
	if len(newHTML) > len(exHTML) {
		return true
	}
	// A record capped exactly at the legacy truncation boundary is suspect.
	if len(exHTML) == s.cfg.LegacyTruncationBytes && newHTML != "" {
		return true
	}
	if candidate.Article.Length > existing.Article.Length {
		return true
	}
	return false
}
