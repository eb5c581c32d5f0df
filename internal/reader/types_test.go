package reader

import (
	"strings"
	"testing"
)

func TestNewExtractionRequest(t *testing.T) {
	t.Run("valid absolute URL", func(t *testing.T) {
		req, err := NewExtractionRequest("https://Example.com/article?x=1", SourceDirect)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Hostname != "example.com" {
			t.Fatalf("hostname = %q, want example.com", req.Hostname)
		}
		if req.Source != SourceDirect {
			t.Fatalf("source = %q", req.Source)
		}
	})

	t.Run("relative URL rejected", func(t *testing.T) {
		if _, err := NewExtractionRequest("/just/a/path", SourceDirect); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		_, err := NewExtractionRequest("ftp://example.com/file", SourceDirect)
		appErr := AsAppError(err)
		if appErr == nil || appErr.Type != ErrValidation {
			t.Fatalf("expected VALIDATION_ERROR, got %v", err)
		}
	})
}

func TestParseSource(t *testing.T) {
	for _, valid := range []string{"direct", "managed", "archived"} {
		if _, err := ParseSource(valid); err != nil {
			t.Fatalf("ParseSource(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseSource("client"); err == nil {
		t.Fatal("client source must not be addressable via the API")
	}
	if _, err := ParseSource("bogus"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestArticleValidate(t *testing.T) {
	art := &Article{
		Title:       "t",
		Content:     "<p>hello</p>",
		TextContent: "hello",
		Length:      5,
	}
	if err := art.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	art.Length = 4
	if err := art.Validate(); err == nil {
		t.Fatal("length mismatch must fail validation")
	}

	empty := &Article{Length: 10}
	if err := empty.Validate(); err == nil {
		t.Fatal("empty text must fail validation")
	}
}

func TestTextLengthCountsRunes(t *testing.T) {
	if got := TextLength("héllo"); got != 5 {
		t.Fatalf("TextLength = %d, want 5", got)
	}
	if got := TextLength(strings.Repeat("ع", 7)); got != 7 {
		t.Fatalf("TextLength = %d, want 7", got)
	}
}

func TestCacheKey(t *testing.T) {
	key := CacheKey(SourceManaged, "https://example.com/a")
	if key != "managed:https://example.com/a" {
		t.Fatalf("key = %q", key)
	}
}
