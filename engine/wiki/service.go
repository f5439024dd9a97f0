package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/motorgraph/motorgraph/pkg/metrics"
	"github.com/motorgraph/motorgraph/pkg/ttlcache"
)

// Cache defaults, matching the upstream politeness contract: results are
// reused for an hour and the sweep reclaims abandoned keys every ten minutes.
const (
	DefaultCacheTTL   = time.Hour
	DefaultCacheSweep = 10 * time.Minute
)

const cacheKeyPrefix = "wiki_details_"

var wsRe = regexp.MustCompile(`\s+`)

// CacheKey normalizes a search term into its cache key: lower-cased with
// whitespace runs collapsed to single underscores.
func CacheKey(term string) string {
	return cacheKeyPrefix + wsRe.ReplaceAllString(strings.ToLower(term), "_")
}

// ContentSource abstracts the upstream encyclopedia for testing.
type ContentSource interface {
	Parse(ctx context.Context, term string) (*ParseResult, error)
}

// Service is the detail-fetch pipeline: cache lookup, fetch, classification,
// model-only fallback, sanitization, and caching of the final success.
type Service struct {
	source   ContentSource
	cache    *ttlcache.Cache[Details]
	pageBase string
	logger   *slog.Logger

	hits     *metrics.Counter
	misses   *metrics.Counter
	failures *metrics.Counter
	fetchDur *metrics.Histogram
}

// NewService wires the pipeline. The cache is an explicit collaborator so
// callers control its lifetime; met and logger may be nil.
func NewService(source ContentSource, cache *ttlcache.Cache[Details], met *metrics.Registry, logger *slog.Logger) *Service {
	if met == nil {
		met = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:   source,
		cache:    cache,
		pageBase: DefaultPageBaseURL,
		logger:   logger,
		hits:     met.Counter("motorgraph_wiki_cache_hits_total", "Detail results served from cache"),
		misses:   met.Counter("motorgraph_wiki_cache_misses_total", "Detail lookups that reached upstream"),
		failures: met.Counter("motorgraph_wiki_fetch_failures_total", "Detail lookups that failed after fallback"),
		fetchDur: met.Histogram("motorgraph_wiki_fetch_duration_seconds", "Upstream fetch and clean time", nil),
	}
}

// SetPageBaseURL overrides where canonical article links point.
func (s *Service) SetPageBaseURL(base string) { s.pageBase = base }

// ModelDetails resolves descriptive content for a model, optionally scoped
// by brand. The primary search term is "{brand} {model}" when a brand is
// given; if the source reports a missing title for it, the model name alone
// is retried with its own cache key. Successes are cached under the key of
// whichever term produced them; failures are never cached and surface as
// ErrNotFound.
func (s *Service) ModelDetails(ctx context.Context, model, brand string) (Details, error) {
	ctx, span := otel.Tracer("engine/wiki").Start(ctx, "wiki.ModelDetails")
	defer span.End()

	term := model
	if brand != "" {
		term = brand + " " + model
	}
	key := CacheKey(term)
	if d, ok := s.cache.Get(key); ok {
		s.hits.Inc()
		s.logger.Info("wiki: cache hit", "term", term)
		return d, nil
	}
	s.misses.Inc()
	s.logger.Info("wiki: cache miss, fetching", "term", term)

	d, err := s.fetch(ctx, term)
	usedKey := key
	if err != nil && errors.Is(err, ErrMissingTitle) && brand != "" {
		s.logger.Info("wiki: retrying with model only", "primary", term, "model", model)
		modelKey := CacheKey(model)
		if cached, ok := s.cache.Get(modelKey); ok {
			s.hits.Inc()
			return cached, nil
		}
		d, err = s.fetch(ctx, model)
		usedKey = modelKey
	}
	if err != nil {
		s.failures.Inc()
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("wiki: lookup failed", "term", term, "error", err)
		return Details{}, fmt.Errorf("%w for %q: %v", ErrNotFound, term, err)
	}

	s.cache.SetIfAbsent(usedKey, d)
	return d, nil
}

// fetch performs one upstream call and turns the raw parse result into
// cleaned Details.
func (s *Service) fetch(ctx context.Context, term string) (Details, error) {
	start := time.Now()
	res, err := s.source.Parse(ctx, term)
	s.fetchDur.Since(start)
	if err != nil {
		return Details{}, err
	}

	actual := res.Title
	if actual == "" {
		actual = term
	}
	title := res.DisplayTitle
	if title == "" {
		title = actual
	}

	return Details{
		HTMLContent: Clean(res.Text),
		ImageURL:    res.ThumbnailURL,
		PageURL:     s.pageBase + url.PathEscape(strings.ReplaceAll(actual, " ", "_")),
		Title:       title,
	}, nil
}
