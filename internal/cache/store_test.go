package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/reader/internal/reader"
)

func articleOfLength(n int) *reader.Article {
	text := strings.Repeat("a", n)
	return &reader.Article{
		Title:       "t",
		Content:     "<p>" + text + "</p>",
		TextContent: text,
		Length:      n,
		HTMLContent: "<html><body><p>" + text + "</p></body></html>",
	}
}

func TestMergeWritesOnEmptyCache(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv, StoreConfig{}, nil)
	ctx := context.Background()

	art := articleOfLength(5000)
	stored, replaced, err := store.Merge(ctx, reader.SourceDirect, "https://example.com/a", art)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, *art, stored.Article)

	// Both the record and its metadata projection are written.
	assert.Equal(t, 2, kv.Len())

	loaded, err := store.Load(ctx, reader.SourceDirect, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, *art, loaded.Article)

	meta, err := store.LoadMetadata(ctx, reader.SourceDirect, "https://example.com/a")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, 5000, meta.Length)
}

func TestMergeRejectsInvalidCandidate(t *testing.T) {
	store := NewStore(NewMemoryKV(), StoreConfig{}, nil)

	_, _, err := store.Merge(context.Background(), reader.SourceDirect, "https://example.com/a", &reader.Article{})
	assert.Error(t, err)
}

func TestMergeKeepsBetterExisting(t *testing.T) {
	store := NewStore(NewMemoryKV(), StoreConfig{}, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	big := articleOfLength(8000)
	_, _, err := store.Merge(ctx, reader.SourceDirect, url, big)
	require.NoError(t, err)

	small := articleOfLength(1000)
	stored, replaced, err := store.Merge(ctx, reader.SourceDirect, url, small)
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.Equal(t, 8000, stored.Article.Length)
}

func TestMergeReplacesWhenHTMLAppears(t *testing.T) {
	store := NewStore(NewMemoryKV(), StoreConfig{}, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	noHTML := articleOfLength(8000)
	noHTML.HTMLContent = ""
	_, _, err := store.Merge(ctx, reader.SourceDirect, url, noHTML)
	require.NoError(t, err)

	withHTML := articleOfLength(1000)
	stored, replaced, err := store.Merge(ctx, reader.SourceDirect, url, withHTML)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.NotEmpty(t, stored.Article.HTMLContent)
}

func TestMergeReplacesLegacyTruncatedRecord(t *testing.T) {
	store := NewStore(NewMemoryKV(), StoreConfig{LegacyTruncationBytes: 1000}, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	truncated := articleOfLength(9000)
	truncated.HTMLContent = strings.Repeat("x", 1000)
	_, _, err := store.Merge(ctx, reader.SourceDirect, url, truncated)
	require.NoError(t, err)

	// Shorter text and shorter html, but the existing record sits exactly on
	// the truncation boundary so it goes.
	fresh := articleOfLength(500)
	fresh.HTMLContent = strings.Repeat("y", 600)
	stored, replaced, err := store.Merge(ctx, reader.SourceDirect, url, fresh)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, 500, stored.Article.Length)
}

func TestMergeReplacesOnLongerText(t *testing.T) {
	store := NewStore(NewMemoryKV(), StoreConfig{}, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	first := articleOfLength(1000)
	first.HTMLContent = strings.Repeat("x", 700)
	_, _, err := store.Merge(ctx, reader.SourceDirect, url, first)
	require.NoError(t, err)

	// Same html size ties rule 3; more text wins via rule 5.
	second := articleOfLength(2000)
	second.HTMLContent = strings.Repeat("y", 700)
	_, replaced, err := store.Merge(ctx, reader.SourceDirect, url, second)
	require.NoError(t, err)
	assert.True(t, replaced)
}

func TestMergeCarriesBypassMethod(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv, StoreConfig{}, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	first := articleOfLength(1000)
	_, _, err := store.Merge(ctx, reader.SourceArchived, url, first)
	require.NoError(t, err)

	// Simulate an operator-set classification on the stored record.
	loaded, err := store.Load(ctx, reader.SourceArchived, url)
	require.NoError(t, err)
	loaded.BypassMethod = "archive"
	encoded, err := encodeRecord(loaded)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, reader.CacheKey(reader.SourceArchived, url), encoded))

	second := articleOfLength(2000)
	stored, replaced, err := store.Merge(ctx, reader.SourceArchived, url, second)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, "archive", stored.BypassMethod)
}

func TestFresh(t *testing.T) {
	store := NewStore(NewMemoryKV(), StoreConfig{MinFreshLength: 4000, LegacyTruncationBytes: 250000}, nil)

	tests := []struct {
		name string
		rec  *reader.CacheRecord
		want bool
	}{
		{name: "nil record", rec: nil, want: false},
		{name: "invalid article", rec: &reader.CacheRecord{}, want: false},
		{name: "too short", rec: &reader.CacheRecord{Article: *articleOfLength(4000)}, want: false},
		{name: "long enough", rec: &reader.CacheRecord{Article: *articleOfLength(4001)}, want: true},
		{
			name: "at legacy boundary",
			rec: func() *reader.CacheRecord {
				art := articleOfLength(9000)
				art.HTMLContent = strings.Repeat("x", 250000)
				return &reader.CacheRecord{Article: *art}
			}(),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.Fresh(tt.rec))
		})
	}
}

func TestLoadTreatsCorruptRecordAsMiss(t *testing.T) {
	kv := NewMemoryKV()
	store := NewStore(kv, StoreConfig{}, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	require.NoError(t, kv.Set(ctx, reader.CacheKey(reader.SourceDirect, url), "corrupt!!!"))

	rec, err := store.Load(ctx, reader.SourceDirect, url)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMergeWritesDespiteReadFailure(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))
	kv.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	store := NewStore(kv, StoreConfig{}, nil)
	_, replaced, err := store.Merge(context.Background(), reader.SourceDirect, "https://example.com/a", articleOfLength(5000))
	require.NoError(t, err)
	assert.True(t, replaced)
	kv.AssertExpectations(t)
}

func TestMergeReportsWriteFailure(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, mock.Anything).Return("", ErrKeyNotFound)
	kv.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("oom"))

	store := NewStore(kv, StoreConfig{}, nil)
	_, _, err := store.Merge(context.Background(), reader.SourceDirect, "https://example.com/a", articleOfLength(5000))
	assert.Error(t, err)
}

func TestConcurrentMergesNeverRegress(t *testing.T) {
	store := NewStore(NewMemoryKV(), StoreConfig{}, nil)
	ctx := context.Background()
	url := "https://example.com/a"

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := store.Merge(ctx, reader.SourceDirect, url, articleOfLength(n*100))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final, err := store.Load(ctx, reader.SourceDirect, url)
	require.NoError(t, err)
	require.NotNil(t, final)
	// Every replacement strictly improved on what it read, so the survivor is
	// at least as long as the shortest candidate and html tracks text.
	assert.GreaterOrEqual(t, final.Article.Length, 100)
	assert.Equal(t, fmt.Sprintf("<html><body><p>%s</p></body></html>", final.Article.TextContent), final.Article.HTMLContent)
}
