package cache

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/reader/internal/reader"
)

func sampleRecord() *reader.CacheRecord {
	text := strings.Repeat("All work and no play makes Jack a dull boy. ", 200)
	return &reader.CacheRecord{
		Article: reader.Article{
			Title:       "The Shining",
			Content:     "<p>" + text + "</p>",
			TextContent: text,
			Length:      reader.TextLength(text),
			SiteName:    "overlook.example.com",
			HTMLContent: "<html><body><p>" + text + "</p></body></html>",
		},
		URL:    "https://overlook.example.com/room/237",
		Source: reader.SourceDirect,
	}
}

func TestCodecRoundTrip(t *testing.T) {
	rec := sampleRecord()

	encoded, err := encodeRecord(rec)
	require.NoError(t, err)

	// The stored form must be compressed, not raw JSON.
	assert.False(t, strings.HasPrefix(encoded, "{"))
	assert.Less(t, len(encoded), len(rec.Article.HTMLContent))

	decoded, err := decodeRecord(encoded)
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestDecodeAcceptsPlainJSON(t *testing.T) {
	rec := sampleRecord()
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	decoded, err := decodeRecord("  " + string(raw))
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decodeRecord("not base64 !!!")
	assert.Error(t, err)

	_, err = decodeRecord("aGVsbG8gd29ybGQ=") // valid base64, not gzip
	assert.Error(t, err)
}
