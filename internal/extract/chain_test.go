package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/reader/internal/fetch"
	"github.com/pagelens/reader/internal/reader"
)

// articlePage renders a plausible server-side article page.
func articlePage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en"><head><title>%s</title></head><body>
<nav>Home</nav>
<article><h1>%s</h1><p>%s</p></article>
<footer>fine print</footer>
</body></html>`, title, title, body)
}

func newTestFetcher(t *testing.T) *fetch.Fetcher {
	t.Helper()
	f, err := fetch.New(fetch.Config{}, nil)
	require.NoError(t, err)
	return f
}

func mustRequest(t *testing.T, rawURL string, source reader.Source) reader.ExtractionRequest {
	t.Helper()
	req, err := reader.NewExtractionRequest(rawURL, source)
	require.NoError(t, err)
	return req
}

func TestDirectExtractsArticle(t *testing.T) {
	body := strings.Repeat("Paragraphs of genuine prose about interesting things. ", 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("A Real Headline", body))
	}))
	defer srv.Close()

	d := NewDirect(newTestFetcher(t), nil)
	art, err := d.Extract(context.Background(), mustRequest(t, srv.URL+"/post", reader.SourceDirect))
	require.NoError(t, err)

	assert.Contains(t, art.Title, "A Real Headline")
	assert.Contains(t, art.TextContent, "genuine prose")
	assert.Equal(t, reader.TextLength(art.TextContent), art.Length)
	assert.NotEmpty(t, art.HTMLContent)
	assert.Equal(t, "ltr", art.Dir)
	require.NoError(t, art.Validate())
}

func TestDirectSurfacesUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDirect(newTestFetcher(t), nil)
	_, err := d.Extract(context.Background(), mustRequest(t, srv.URL+"/post", reader.SourceDirect))
	require.Error(t, err)
	assert.Equal(t, reader.ErrNetwork, reader.AsAppError(err).Type)
}

func TestManagedFallsBackToReadability(t *testing.T) {
	body := strings.Repeat("Local extraction still finds all of this prose. ", 20)

	diffbotSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer diffbotSrv.Close()

	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("Fallback Works", body))
	}))
	defer pageSrv.Close()

	m := NewManaged(NewDiffbotClient(DiffbotConfig{Token: "tok", Endpoint: diffbotSrv.URL}), newTestFetcher(t), nil)
	art, err := m.Extract(context.Background(), mustRequest(t, pageSrv.URL+"/post", reader.SourceManaged))
	require.NoError(t, err)
	assert.Contains(t, art.TextContent, "finds all of this prose")
}

func TestManagedPrefersDiffbotResult(t *testing.T) {
	text := strings.Repeat("Managed API prose, fully extracted upstream. ", 10)
	diffbotSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"objects":[{"title":"From API","text":%q,"html":"<p>%s</p>","humanLanguage":"en"}]}`,
			text, text)
	}))
	defer diffbotSrv.Close()

	var pageHits int
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageHits++
	}))
	defer pageSrv.Close()

	m := NewManaged(NewDiffbotClient(DiffbotConfig{Token: "tok", Endpoint: diffbotSrv.URL}), newTestFetcher(t), nil)
	art, err := m.Extract(context.Background(), mustRequest(t, pageSrv.URL+"/post", reader.SourceManaged))
	require.NoError(t, err)
	assert.Equal(t, "From API", art.Title)
	assert.Zero(t, pageHits, "upstream success must not trigger a raw fetch")
}

func TestManagedWithoutClientDegradesToFallback(t *testing.T) {
	body := strings.Repeat("No API key configured and extraction still succeeds. ", 20)
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage("Degraded Mode", body))
	}))
	defer pageSrv.Close()

	m := NewManaged(nil, newTestFetcher(t), nil)
	art, err := m.Extract(context.Background(), mustRequest(t, pageSrv.URL+"/post", reader.SourceManaged))
	require.NoError(t, err)
	assert.Contains(t, art.TextContent, "still succeeds")
}

func TestManagedFailsFastOnClientRenderedPage(t *testing.T) {
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div id="root"></div></body></html>`)
	}))
	defer pageSrv.Close()

	m := NewManaged(nil, newTestFetcher(t), nil)
	_, err := m.Extract(context.Background(), mustRequest(t, pageSrv.URL+"/app", reader.SourceManaged))
	require.Error(t, err)
	appErr := reader.AsAppError(err)
	assert.Equal(t, reader.ErrParse, appErr.Type)
	assert.Contains(t, appErr.Message, "client article endpoint")
}

func TestManagedDomHeuristicRescuesUnreadablePage(t *testing.T) {
	// Bare divs with no paragraph structure defeat readability but the DOM
	// heuristic still finds the content container.
	body := strings.Repeat("plain div text without article markup ", 20)
	pageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><head><title>Divs Only</title></head><body><div class="content">%s</div></body></html>`, body)
	}))
	defer pageSrv.Close()

	m := NewManaged(nil, newTestFetcher(t), nil)
	art, err := m.Extract(context.Background(), mustRequest(t, pageSrv.URL+"/post", reader.SourceManaged))
	require.NoError(t, err)
	assert.Contains(t, art.TextContent, "plain div text")
	assert.NotEmpty(t, art.HTMLContent)
}

func TestArchivedRequiresProxy(t *testing.T) {
	a := NewArchived(nil, nil, "", nil)
	_, err := a.Extract(context.Background(), mustRequest(t, "https://example.com/post", reader.SourceArchived))
	require.Error(t, err)
	assert.Equal(t, reader.ErrProxy, reader.AsAppError(err).Type)
}

func TestArchivedTargetsSnapshotURL(t *testing.T) {
	body := strings.Repeat("Snapshot of the original article, served by the archive. ", 20)
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, articlePage("Archived Copy", body))
	}))
	defer srv.Close()

	a := NewArchived(nil, newTestFetcher(t), srv.URL+"/newest/%s", nil)
	art, err := a.Extract(context.Background(), mustRequest(t, "https://example.com/post", reader.SourceArchived))
	require.NoError(t, err)
	assert.Contains(t, gotPath, "/newest/")
	assert.Contains(t, art.TextContent, "Snapshot of the original")
}
