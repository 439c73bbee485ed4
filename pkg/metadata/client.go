// Package metadata is a best-effort client for the external catalog API.
// Scraped documents are treated as opaque JSON and stored as-is; failures
// downgrade to a per-folder scrape failure and never abort a scan.
package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const requestTimeout = 10 * time.Second

// ErrNoResults is returned when the catalog has no match for a title.
var ErrNoResults = errors.New("no results for title")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type SearchResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Search queries the catalog for books matching the title. A 404 means no
// results, not an error.
func (c *Client) Search(ctx context.Context, title string) ([]SearchResult, error) {
	query := url.Values{}
	query.Set("q", title)
	query.Set("type", "book")
	query.Set("group", "small")
	query.Set("limit", "10")

	body, status, err := c.get(ctx, "/search?"+query.Encode())
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status > 299 {
		return nil, errors.Errorf("catalog search returned status %d", status)
	}

	resp := searchResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.WithStack(err)
	}

	return resp.Results, nil
}

// GetSubject fetches the detailed document for a catalog subject. The
// document is returned raw; interpretation belongs to presentation layers.
func (c *Client) GetSubject(ctx context.Context, id string) (json.RawMessage, error) {
	body, status, err := c.get(ctx, "/subjects/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, errors.Errorf("catalog subject %s not found", id)
	}
	if status < 200 || status > 299 {
		return nil, errors.Errorf("catalog subject returned status %d", status)
	}

	return json.RawMessage(body), nil
}

// AutoScrape resolves a title to its catalog document: search, take the
// first result, fetch its subject. Returns ErrNoResults when the catalog
// has nothing for the title.
func (c *Client) AutoScrape(ctx context.Context, title string) (json.RawMessage, error) {
	results, err := c.Search(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.WithStack(ErrNoResults)
	}

	doc, err := c.GetSubject(ctx, results[0].ID)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return body, resp.StatusCode, nil
}
