// Package quote is a small client for The One API (the-one-api.dev), the
// Lord of the Rings quote service backing the example MCP server.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hupe1980/colloquy/logging"
)

// DefaultBaseURL is the production endpoint of The One API, v2.
const DefaultBaseURL = "https://the-one-api.dev/v2"

// ErrNoQuote indicates the service answered but had no quote to give, as
// opposed to a transport or authentication failure.
var ErrNoQuote = errors.New("no quote available")

// Quote is a single movie quote.
type Quote struct {
	ID        string `json:"_id"`
	Dialog    string `json:"dialog"`
	Movie     string `json:"movie"`
	Character string `json:"character"`
}

type quotePage struct {
	Docs  []Quote `json:"docs"`
	Total int     `json:"total"`
}

// Options configures the client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client calls The One API with bearer authentication.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger

	// total quote count, cached after the first lookup so Random needs a
	// single request per call afterwards. Guarded by mu: one client is
	// shared across concurrent tool handlers.
	mu    sync.Mutex
	total int
}

// New creates a client. The API key comes from an account at the-one-api.dev.
func New(apiKey string, optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
}

// Random fetches one uniformly random quote. The first call pages once to
// learn the corpus size; later calls reuse the cached total.
func (c *Client) Random(ctx context.Context) (*Quote, error) {
	total, err := c.corpusTotal(ctx)
	if err != nil {
		return nil, err
	}

	offset := rand.Intn(total)
	page, err := c.fetchPage(ctx, url.Values{
		"limit":  {"1"},
		"offset": {fmt.Sprint(offset)},
	})
	if err != nil {
		return nil, err
	}
	if len(page.Docs) == 0 {
		return nil, ErrNoQuote
	}

	q := page.Docs[0]
	c.logger.Debug("quote.random", "id", q.ID, "offset", offset)
	return &q, nil
}

// corpusTotal returns the cached corpus size, fetching it on first use. The
// lock is held across the fetch so concurrent first calls page only once.
func (c *Client) corpusTotal(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total != 0 {
		return c.total, nil
	}
	page, err := c.fetchPage(ctx, url.Values{"limit": {"1"}})
	if err != nil {
		return 0, err
	}
	if page.Total == 0 {
		return 0, ErrNoQuote
	}
	c.total = page.Total
	return c.total, nil
}

// ByID fetches a specific quote. A quote id that the service does not know
// yields ErrNoQuote.
func (c *Client) ByID(ctx context.Context, id string) (*Quote, error) {
	page, err := c.get(ctx, "/quote/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if len(page.Docs) == 0 {
		return nil, fmt.Errorf("%w: id %q", ErrNoQuote, id)
	}
	q := page.Docs[0]
	return &q, nil
}

// ByDialog finds the quote whose dialog matches the given text exactly.
func (c *Client) ByDialog(ctx context.Context, dialog string) (*Quote, error) {
	page, err := c.fetchPage(ctx, url.Values{"dialog": {dialog}, "limit": {"1"}})
	if err != nil {
		return nil, err
	}
	if len(page.Docs) == 0 {
		return nil, fmt.Errorf("%w: dialog %q", ErrNoQuote, dialog)
	}
	q := page.Docs[0]
	return &q, nil
}

func (c *Client) fetchPage(ctx context.Context, query url.Values) (*quotePage, error) {
	return c.get(ctx, "/quote", query)
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*quotePage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &quotePage{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote service returned %s", resp.Status)
	}

	var page quotePage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode quote response: %w", err)
	}
	return &page, nil
}
