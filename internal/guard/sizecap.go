package guard

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// DefaultMaxResponseBytes caps upstream bodies at 25 MB.
const DefaultMaxResponseBytes = 25 * 1024 * 1024

// ErrResponseTooLarge marks a body that declared or streamed past the cap.
var ErrResponseTooLarge = errors.New("response exceeds size cap")

// RedactURL strips the query string, fragment and userinfo so error messages
// never leak embedded credentials or tokens.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

// SizeCapTransport wraps a RoundTripper and enforces the response-size cap.
// A Content-Length above the cap cancels the body without reading; otherwise
// the body is counted incrementally and aborted as soon as it runs over.
type SizeCapTransport struct {
	Base     http.RoundTripper
	MaxBytes int64
}

// NewSizeCapTransport wraps base, falling back to the default transport and
// default cap for zero values.
func NewSizeCapTransport(base http.RoundTripper, maxBytes int64) *SizeCapTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	return &SizeCapTransport{Base: base, MaxBytes: maxBytes}
}

// RoundTrip implements http.RoundTripper.
func (t *SizeCapTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("upstream round trip: %w", err)
	}
	if resp.ContentLength > t.MaxBytes {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s declared %d bytes",
			ErrResponseTooLarge, RedactURL(req.URL.String()), resp.ContentLength)
	}
	resp.Body = &cappedBody{
		rc:  resp.Body,
		max: t.MaxBytes,
		url: RedactURL(req.URL.String()),
	}
	return resp, nil
}

// cappedBody aborts a streaming body once cumulative bytes exceed the cap.
type cappedBody struct {
	rc   io.ReadCloser
	max  int64
	read int64
	url  string
}

func (b *cappedBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	b.read += int64(n)
	if b.read > b.max {
		return n, fmt.Errorf("%w: %s streamed past %d bytes", ErrResponseTooLarge, b.url, b.max)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read body: %w", err)
	}
	return n, err
}

func (b *cappedBody) Close() error {
	if err := b.rc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return nil
}

// IsTooLarge reports whether err originated from the size cap.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrResponseTooLarge)
}
