package kbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/amlandas/newsgraph/internal/domain"
)

const wikidataAPI = "https://www.wikidata.org/w/api.php"

// WikidataClient enriches entity mentions against Wikidata's REST search and
// entity-fetch endpoints, caching results with a TTL and honoring a
// requests-per-minute rate limit.
type WikidataClient struct {
	statCounters
	http      *http.Client
	cache     Cache
	limiter   *rate.Limiter
	ttl       time.Duration
	userAgent string
	retry     int
}

// Config configures a WikidataClient.
type Config struct {
	Cache          Cache
	RatePerMinute  int           // default 50
	TTL            time.Duration // default 30 days
	Timeout        time.Duration // default 10s
	MaxRetries     int           // default 3
	UserAgent      string
}

// DefaultConfig matches spec.md's KB Enricher defaults.
func DefaultConfig(cache Cache) Config {
	return Config{
		Cache:         cache,
		RatePerMinute: 50,
		TTL:           30 * 24 * time.Hour,
		Timeout:       10 * time.Second,
		MaxRetries:    3,
		UserAgent:     "newsgraph-pipeline/1.0 (news knowledge extraction; contact ops@newsgraph.example)",
	}
}

// NewWikidataClient builds a rate-limited, cached Wikidata enrichment client.
func NewWikidataClient(cfg Config) *WikidataClient {
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = 50
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	ratePerSecond := rate.Limit(float64(cfg.RatePerMinute) / 60.0)
	return &WikidataClient{
		http:      &http.Client{Timeout: cfg.Timeout},
		cache:     cfg.Cache,
		limiter:   rate.NewLimiter(ratePerSecond, 1),
		ttl:       cfg.TTL,
		userAgent: cfg.UserAgent,
		retry:     cfg.MaxRetries,
	}
}

func cacheKey(surface string, entityType domain.EntityType) string {
	return strings.ToLower(strings.TrimSpace(surface)) + "|" + string(entityType)
}

// Enrich looks up surface/entityType against the cache, falling through to
// Wikidata's search and entity-fetch endpoints on miss. 403/404/timeout are
// treated as "no link" rather than an error; 5xx and 429 are retried with
// exponential backoff up to the configured maximum.
func (c *WikidataClient) Enrich(ctx context.Context, surface string, entityType domain.EntityType) (*domain.KBLink, error) {
	key := cacheKey(surface, entityType)

	if c.cache != nil {
		if entry, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			c.incr(&c.hits)
			return &domain.KBLink{KBID: entry.KBID, Label: entry.Label, Description: entry.Description}, nil
		}
	}
	c.incr(&c.misses)

	if err := c.limiter.Wait(ctx); err != nil {
		c.incr(&c.rateLimited)
		return nil, fmt.Errorf("kb rate limiter: %w", err)
	}
	c.incr(&c.requests)

	link, err := c.lookupWithRetry(ctx, surface)
	if err != nil {
		if isNoLinkCondition(err) {
			return nil, nil
		}
		c.incr(&c.errors)
		return nil, err
	}
	if link == nil {
		return nil, nil
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, domain.KBCacheEntry{
			Key: key, KBID: link.KBID, Label: link.Label, Description: link.Description, CreatedAt: time.Now(),
		}, c.ttl)
	}
	return link, nil
}

func (c *WikidataClient) Close() error {
	if closer, ok := c.cache.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

type noLinkError struct{ cause error }

func (e noLinkError) Error() string { return fmt.Sprintf("no kb link: %v", e.cause) }
func isNoLinkCondition(err error) bool {
	_, ok := err.(noLinkError)
	return ok
}

func (c *WikidataClient) lookupWithRetry(ctx context.Context, surface string) (*domain.KBLink, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt)) * 200 * time.Millisecond
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		link, err := c.lookupOnce(ctx, surface)
		if err == nil {
			return link, nil
		}
		lastErr = err
		if !isRetryableKBError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

type wikidataStatusError struct {
	status int
}

func (e wikidataStatusError) Error() string { return fmt.Sprintf("wikidata status %d", e.status) }

func isRetryableKBError(err error) bool {
	se, ok := err.(wikidataStatusError)
	if !ok {
		return false
	}
	return se.status == 429 || se.status >= 500
}

func (c *WikidataClient) lookupOnce(ctx context.Context, surface string) (*domain.KBLink, error) {
	qid, label, err := c.search(ctx, surface)
	if err != nil {
		return nil, err
	}
	if qid == "" {
		return nil, nil
	}
	return c.fetchEntity(ctx, qid, label)
}

type wikidataSearchResponse struct {
	Search []struct {
		ID          string `json:"id"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"search"`
}

func (c *WikidataClient) search(ctx context.Context, surface string) (qid, label string, err error) {
	q := url.Values{}
	q.Set("action", "wbsearchentities")
	q.Set("search", surface)
	q.Set("language", "en")
	q.Set("format", "json")
	q.Set("limit", "1")

	resp, err := c.doRequest(ctx, wikidataAPI+"?"+q.Encode())
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return "", "", err
	}

	var parsed wikidataSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("decode wikidata search: %w", err)
	}
	if len(parsed.Search) == 0 {
		return "", "", nil
	}
	return parsed.Search[0].ID, parsed.Search[0].Label, nil
}

type wikidataEntityResponse struct {
	Entities map[string]struct {
		Labels map[string]struct {
			Value string `json:"value"`
		} `json:"labels"`
		Descriptions map[string]struct {
			Value string `json:"value"`
		} `json:"descriptions"`
		Claims map[string]json.RawMessage `json:"claims"`
	} `json:"entities"`
}

func (c *WikidataClient) fetchEntity(ctx context.Context, qid, fallbackLabel string) (*domain.KBLink, error) {
	q := url.Values{}
	q.Set("action", "wbgetentities")
	q.Set("ids", qid)
	q.Set("languages", "en")
	q.Set("format", "json")
	q.Set("props", "labels|descriptions|claims")

	resp, err := c.doRequest(ctx, wikidataAPI+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	var parsed wikidataEntityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode wikidata entity: %w", err)
	}
	ent, ok := parsed.Entities[qid]
	if !ok {
		return &domain.KBLink{KBID: qid, Label: fallbackLabel}, nil
	}

	label := fallbackLabel
	if l, ok := ent.Labels["en"]; ok && l.Value != "" {
		label = l.Value
	}
	desc := ""
	if d, ok := ent.Descriptions["en"]; ok {
		desc = d.Value
	}

	// Select a handful of structured claim properties (instance-of P31,
	// occupation P106, country P17) when present, dropping the rest; the KB
	// cache stores the link summary, not the full entity graph.
	props := map[string]string{}
	for _, pid := range []string{"P31", "P106", "P17"} {
		if raw, ok := ent.Claims[pid]; ok && len(raw) > 0 {
			props[pid] = "present"
		}
	}

	return &domain.KBLink{KBID: qid, Label: label, Description: desc, Properties: props}, nil
}

func (c *WikidataClient) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build wikidata request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, noLinkError{cause: err}
	}
	return resp, nil
}

func classifyStatus(status int) error {
	if status == http.StatusOK {
		return nil
	}
	if status == http.StatusForbidden || status == http.StatusNotFound {
		return noLinkError{cause: fmt.Errorf("status %d", status)}
	}
	return wikidataStatusError{status: status}
}
