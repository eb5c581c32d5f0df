package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pagelens/reader/internal/guard"
	"github.com/pagelens/reader/internal/reader"
)

// DiffbotConfig holds credentials and endpoint for the managed extraction API.
type DiffbotConfig struct {
	Token    string
	Endpoint string
	Timeout  time.Duration
}

const defaultDiffbotEndpoint = "https://api.diffbot.com/v3/article"

// DiffbotClient calls the Diffbot article API.
type DiffbotClient struct {
	token      string
	endpoint   string
	httpClient *http.Client
}

// NewDiffbotClient builds a client, or nil when no token is configured so the
// managed source degrades straight to its local fallback chain.
func NewDiffbotClient(cfg DiffbotConfig) *DiffbotClient {
	if cfg.Token == "" {
		return nil
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultDiffbotEndpoint
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &DiffbotClient{
		token:      cfg.Token,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type diffbotObject struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	HTML          string `json:"html"`
	Author        string `json:"author"`
	Date          string `json:"date"`
	SiteName      string `json:"siteName"`
	PageURL       string `json:"pageUrl"`
	HumanLanguage string `json:"humanLanguage"`
	Images        []struct {
		URL     string `json:"url"`
		Primary bool   `json:"primary"`
	} `json:"images"`
}

type diffbotResponse struct {
	Error     string          `json:"error"`
	ErrorCode int             `json:"errorCode"`
	Objects   []diffbotObject `json:"objects"`
}

// Article extracts target through the Diffbot API. Any API-level failure,
// including a response missing required fields, is a DIFFBOT_ERROR the
// caller recovers from locally.
func (c *DiffbotClient) Article(ctx context.Context, target string) (*diffbotObject, error) {
	q := url.Values{}
	q.Set("token", c.token)
	q.Set("url", target)
	q.Set("discussion", "false")
	reqURL := c.endpoint + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, reader.NewDiffbotError("build request", err.Error())
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, reader.NewDiffbotError(
			fmt.Sprintf("call failed for %s", guard.RedactURL(target)), err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, reader.NewDiffbotError(
			fmt.Sprintf("API returned %d for %s", resp.StatusCode, guard.RedactURL(target)), "")
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, guard.DefaultMaxResponseBytes))
	if err != nil {
		return nil, reader.NewDiffbotError("read response", err.Error())
	}
	var parsed diffbotResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, reader.NewDiffbotError("malformed response", err.Error())
	}
	if parsed.Error != "" {
		return nil, reader.NewDiffbotError(
			fmt.Sprintf("API error %d", parsed.ErrorCode), parsed.Error)
	}
	if len(parsed.Objects) == 0 {
		return nil, reader.NewDiffbotError("response contains no objects", "")
	}
	obj := parsed.Objects[0]
	if obj.Text == "" || obj.HTML == "" {
		return nil, reader.NewDiffbotError("response missing required fields", "")
	}
	return &obj, nil
}

// parts adapts a Diffbot object into the common article raw material.
func (o *diffbotObject) parts(hostname, sourceID string) articleParts {
	var image string
	for _, img := range o.Images {
		if img.Primary {
			image = img.URL
			break
		}
	}
	if image == "" && len(o.Images) > 0 {
		image = o.Images[0].URL
	}
	return articleParts{
		Title:         o.Title,
		Content:       o.HTML,
		TextContent:   normalizeWhitespace(o.Text),
		SiteName:      o.SiteName,
		Byline:        o.Author,
		PublishedTime: o.Date,
		Image:         image,
		Lang:          o.HumanLanguage,
		Hostname:      hostname,
		SourceID:      sourceID,
	}
}
