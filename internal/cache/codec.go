package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pagelens/reader/internal/reader"
)

// encodeRecord serializes, compresses and base64-encodes a record for storage.
func encodeRecord(rec *reader.CacheRecord) (string, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress record: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("flush compressor: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decodeRecord reverses encodeRecord. Records written before compression was
// introduced are plain JSON; those are accepted as-is.
func decodeRecord(stored string) (*reader.CacheRecord, error) {
	trimmed := strings.TrimSpace(stored)
	if strings.HasPrefix(trimmed, "{") {
		return decodePlain(trimmed)
	}
	compressed, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("base64 decode record: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open decompressor: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress record: %w", err)
	}
	var rec reader.CacheRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

func decodePlain(raw string) (*reader.CacheRecord, error) {
	var rec reader.CacheRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal legacy record: %w", err)
	}
	return &rec, nil
}
