// Package keepa provides a client for the Keepa product data API.
package keepa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/margincraft/resale-cli/internal/resilience"
)

// Client defines the Keepa operations used by discovery.
type Client interface {
	// TopProducts fetches the best-ranked products for a category,
	// filtered by the query's BSR cap and price band.
	TopProducts(ctx context.Context, q CategoryQuery) ([]Product, error)
}

// CategoryQuery selects which products to fetch.
type CategoryQuery struct {
	CategoryID int
	Name       string
	Limit      int
	BSRMax     int
	PriceMin   float64
	PriceMax   float64
}

// Product is a normalized product observation from Keepa.
type Product struct {
	ASIN                 string
	Title                string
	Category             string
	AvgPrice             *float64
	BSR                  *int
	EstimatedSalesPerDay *float64
	ReviewsCount         *int
	Rating               *float64
	Raw                  json.RawMessage
}

// Option configures the Keepa client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithDomain sets the Keepa marketplace domain code.
func WithDomain(domain int) Option {
	return func(c *httpClient) { c.domain = domain }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(perSec), 1) }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.retry = p }
}

type httpClient struct {
	apiKey  string
	baseURL string
	domain  int
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// DomainFor maps a marketplace label like "amazon_fr" to the Keepa
// domain code. Unknown marketplaces default to amazon.fr.
func DomainFor(marketplace string) int {
	switch marketplace {
	case "amazon_com":
		return 1
	case "amazon_co_uk":
		return 2
	case "amazon_de":
		return 3
	case "amazon_fr":
		return 4
	case "amazon_it":
		return 8
	case "amazon_es":
		return 9
	default:
		return 4
	}
}

// NewClient creates a Keepa client. The default rate limit is one
// request per second, which matches Keepa's token refill for small plans.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.keepa.com",
		domain:  4,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// productPayload mirrors the fields we read from a Keepa product object.
// Prices are in cents and ratings in tenths of a star.
type productPayload struct {
	ASIN  string `json:"asin"`
	Title string `json:"title"`
	Stats struct {
		AvgPrice    int `json:"avgPrice"`
		SalesRank   int `json:"salesRank"`
		MonthlySold int `json:"monthlySold"`
		ReviewCount int `json:"reviewCount"`
		Rating      int `json:"rating"`
	} `json:"stats"`
}

type productResponse struct {
	Products []json.RawMessage `json:"products"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) TopProducts(ctx context.Context, q CategoryQuery) ([]Product, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "keepa: rate limit wait")
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("domain", strconv.Itoa(c.domain))
	params.Set("category", strconv.Itoa(q.CategoryID))
	params.Set("stats", "180")
	params.Set("rating", "1")

	reqURL := fmt.Sprintf("%s/product?%s", c.baseURL, params.Encode())

	policy := c.retry
	policy.OnRetry = resilience.RetryLogger("keepa", "top_products")
	body, err := resilience.DoVal(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return nil, eris.Wrap(err, "keepa: fetch products")
	}

	var resp productResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "keepa: unmarshal response")
	}
	if resp.Error != nil {
		return nil, eris.Errorf("keepa: api error: %s", resp.Error.Message)
	}

	products := make([]Product, 0, len(resp.Products))
	for _, raw := range resp.Products {
		var p productPayload
		if err := json.Unmarshal(raw, &p); err != nil || p.ASIN == "" {
			// Partial data happens; skip what we can't read.
			continue
		}
		prod := normalize(p, q.Name, raw)
		if !matches(prod, q) {
			continue
		}
		products = append(products, prod)
		if q.Limit > 0 && len(products) >= q.Limit {
			break
		}
	}
	return products, nil
}

func (c *httpClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "keepa: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "keepa: read response body")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("keepa: status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}
	return body, nil
}

func normalize(p productPayload, category string, raw json.RawMessage) Product {
	prod := Product{
		ASIN:     p.ASIN,
		Title:    p.Title,
		Category: category,
		Raw:      raw,
	}
	if p.Stats.AvgPrice > 0 {
		price := float64(p.Stats.AvgPrice) / 100
		prod.AvgPrice = &price
	}
	if p.Stats.SalesRank > 0 {
		bsr := p.Stats.SalesRank
		prod.BSR = &bsr
	}
	if p.Stats.MonthlySold > 0 {
		sales := float64(p.Stats.MonthlySold) / 30
		prod.EstimatedSalesPerDay = &sales
	}
	if p.Stats.ReviewCount > 0 {
		reviews := p.Stats.ReviewCount
		prod.ReviewsCount = &reviews
	}
	if p.Stats.Rating > 0 {
		rating := float64(p.Stats.Rating) / 10
		prod.Rating = &rating
	}
	return prod
}

func matches(p Product, q CategoryQuery) bool {
	if q.BSRMax > 0 && p.BSR != nil && *p.BSR > q.BSRMax {
		return false
	}
	if p.AvgPrice != nil {
		if q.PriceMin > 0 && *p.AvgPrice < q.PriceMin {
			return false
		}
		if q.PriceMax > 0 && *p.AvgPrice > q.PriceMax {
			return false
		}
	}
	return true
}
