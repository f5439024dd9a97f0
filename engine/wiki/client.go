package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/motorgraph/motorgraph/pkg/resilience"
)

// DefaultAPIURL is the MediaWiki action API endpoint of the content source.
const DefaultAPIURL = "https://en.wikipedia.org/w/api.php"

// DefaultPageBaseURL is where canonical article links point.
const DefaultPageBaseURL = "https://en.wikipedia.org/wiki/"

const thumbnailSize = 500

// Client fetches parsed articles from a MediaWiki-compatible API. Calls are
// rate limited to stay polite and guarded by a circuit breaker so a broken
// upstream fails fast instead of tying up request handlers.
type Client struct {
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *slog.Logger
}

// NewClient creates a client for the given API endpoint, or DefaultAPIURL
// when empty.
func NewClient(apiURL string, logger *slog.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiURL: apiURL,
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		logger:  logger,
	}
}

// apiResponse is the wire shape of an action=parse response, formatversion 2.
type apiResponse struct {
	Error *APIError `json:"error"`
	Parse *struct {
		Title        string `json:"title"`
		Text         string `json:"text"`
		DisplayTitle string `json:"displaytitle"`
		PageImage    string `json:"pageimage"`
		Thumbnail    *struct {
			Source string `json:"source"`
		} `json:"thumbnail"`
	} `json:"parse"`
}

// Parse requests the parsed article for a search term, asking for article
// text, a representative thumbnail, and the resolved and display titles,
// following redirects. Failures are classified: a source-reported missing
// title surfaces as ErrMissingTitle, a page without text as ErrNoContent.
func (c *Client) Parse(ctx context.Context, term string) (*ParseResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("action", "parse")
	q.Set("page", term)
	q.Set("format", "json")
	q.Set("prop", "text|pageimages|displaytitle")
	q.Set("pithumbsize", fmt.Sprintf("%d", thumbnailSize))
	q.Set("redirects", "true")
	q.Set("formatversion", "2")
	reqURL := c.apiURL + "?" + q.Encode()

	// The breaker sees only transport health. A missing page is a valid
	// answer from a healthy upstream, so classification happens outside.
	var body []byte
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", "motorgraph/1.0 (car model details lookup)")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("content source request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("content source status %d for %q", resp.StatusCode, term)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read content source body: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("decode content source response: %w", err)
	}

	if ar.Error != nil {
		if ar.Error.Code == "missingtitle" {
			return nil, fmt.Errorf("%q: %w", term, ErrMissingTitle)
		}
		return nil, ar.Error
	}
	if ar.Parse == nil || ar.Parse.Text == "" {
		return nil, fmt.Errorf("%q: %w", term, ErrNoContent)
	}

	result := &ParseResult{
		Title:        ar.Parse.Title,
		DisplayTitle: ar.Parse.DisplayTitle,
		Text:         ar.Parse.Text,
	}
	if ar.Parse.Thumbnail != nil {
		result.ThumbnailURL = ar.Parse.Thumbnail.Source
	} else if ar.Parse.PageImage != "" {
		// pageimage is a bare filename, not a URL; not usable directly.
		c.logger.Debug("wiki: no thumbnail, pageimage only", "term", term, "pageimage", ar.Parse.PageImage)
	}
	return result, nil
}
