// Package spapi provides a client for the Amazon Selling Partner API,
// limited to the pricing and fees-estimate endpoints the scoring stage
// needs. Lookups are best effort: "no data" is a nil result, not an
// error, so callers can always fall back to observed market data.
package spapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/margincraft/resale-cli/internal/resilience"
)

// Client defines the SP-API operations used by scoring.
type Client interface {
	// GetPrice resolves a live selling price for an ASIN through the
	// buybox, lowest-FBA, lowest-FBM waterfall. Nil means no offer data.
	GetPrice(ctx context.Context, asin string) (*float64, error)
	// GetFees estimates total marketplace fees for an ASIN at a price.
	// Nil means the estimate is unavailable.
	GetFees(ctx context.Context, asin string, price float64) (*float64, error)
}

// Credentials holds the Login-with-Amazon OAuth credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Option configures the SP-API client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithTokenURL sets a custom LWA token endpoint (for testing).
func WithTokenURL(u string) Option {
	return func(c *httpClient) { c.tokenURL = u }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) { c.retry = p }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(rate.Limit(perSec), 1) }
}

type httpClient struct {
	creds         Credentials
	marketplaceID string
	baseURL       string
	tokenURL      string
	http          *http.Client
	limiter       *rate.Limiter
	retry         resilience.Policy

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates an SP-API client for one marketplace.
func NewClient(creds Credentials, marketplaceID string, opts ...Option) Client {
	c := &httpClient{
		creds:         creds,
		marketplaceID: marketplaceID,
		baseURL:       "https://sellingpartnerapi-eu.amazon.com",
		tokenURL:      "https://api.amazon.com/auth/o2/token",
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		// The pricing and fees endpoints share a 0.5 rps restore rate
		// with small bursts; half a request per second stays under it.
		limiter: rate.NewLimiter(rate.Limit(0.5), 5),
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// token returns a cached LWA access token, refreshing it five minutes
// before expiry.
func (c *httpClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-5*time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", c.creds.RefreshToken)
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL,
		bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "spapi: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "spapi: token request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "spapi: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("spapi: token status %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", eris.Wrap(err, "spapi: unmarshal token response")
	}
	if tok.AccessToken == "" {
		return "", eris.New("spapi: empty access token")
	}
	if tok.ExpiresIn <= 0 {
		tok.ExpiresIn = 3600
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

type competitivePrice struct {
	Condition          string `json:"condition"`
	FulfillmentChannel string `json:"fulfillmentChannel"`
	BelongsToRequester bool   `json:"belongsToRequester"`
	Price              struct {
		ListingPrice struct {
			Amount float64 `json:"Amount"`
		} `json:"ListingPrice"`
	} `json:"Price"`
}

type pricingResponse struct {
	Payload []struct {
		Product struct {
			CompetitivePricing struct {
				CompetitivePrices struct {
					CompetitivePrice []competitivePrice `json:"CompetitivePrice"`
				} `json:"CompetitivePrices"`
			} `json:"CompetitivePricing"`
		} `json:"Product"`
	} `json:"payload"`
}

func (c *httpClient) GetPrice(ctx context.Context, asin string) (*float64, error) {
	params := url.Values{}
	params.Set("MarketplaceId", c.marketplaceID)
	params.Set("Asins", asin)
	params.Set("ItemType", "Asin")

	reqURL := fmt.Sprintf("%s/pricing/v1/competitivePricing?%s", c.baseURL, params.Encode())
	body, err := c.do(ctx, http.MethodGet, reqURL, nil, "get_price")
	if err != nil {
		return nil, err
	}

	var resp pricingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "spapi: unmarshal pricing response")
	}
	if len(resp.Payload) == 0 {
		return nil, nil
	}

	var buybox, lowestFBA, lowestFBM *float64
	for _, cp := range resp.Payload[0].Product.CompetitivePricing.CompetitivePrices.CompetitivePrice {
		if cp.Condition != "New" || cp.Price.ListingPrice.Amount <= 0 {
			continue
		}
		amount := cp.Price.ListingPrice.Amount
		switch {
		case cp.BelongsToRequester && buybox == nil:
			buybox = &amount
		case cp.FulfillmentChannel == "Amazon" && lowestFBA == nil:
			lowestFBA = &amount
		case cp.FulfillmentChannel == "Merchant" && lowestFBM == nil:
			lowestFBM = &amount
		}
	}

	switch {
	case buybox != nil:
		return buybox, nil
	case lowestFBA != nil:
		return lowestFBA, nil
	default:
		return lowestFBM, nil
	}
}

type feesResponse struct {
	FeesEstimateResult struct {
		FeesEstimate struct {
			FeeDetailList []struct {
				FeeType  string `json:"FeeType"`
				FinalFee struct {
					Amount string `json:"Amount"`
				} `json:"FinalFee"`
			} `json:"FeeDetailList"`
		} `json:"FeesEstimate"`
	} `json:"FeesEstimateResult"`
}

func (c *httpClient) GetFees(ctx context.Context, asin string, price float64) (*float64, error) {
	if price <= 0 {
		return nil, nil
	}

	payload := map[string]any{
		"MarketplaceId":     c.marketplaceID,
		"ASIN":              asin,
		"IdentifierType":    "ASIN",
		"IsAmazonFulfilled": true,
		"PriceToEstimateFees": map[string]any{
			"ListingPrice": map[string]any{
				"Amount":       strconv.FormatFloat(price, 'f', 2, 64),
				"CurrencyCode": "EUR",
			},
		},
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "spapi: marshal fees request")
	}

	reqURL := c.baseURL + "/fees/v0/feesEstimate"
	body, err := c.do(ctx, http.MethodPost, reqURL, reqBody, "get_fees")
	if err != nil {
		return nil, err
	}

	var resp feesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "spapi: unmarshal fees response")
	}

	details := resp.FeesEstimateResult.FeesEstimate.FeeDetailList
	if len(details) == 0 {
		return nil, nil
	}

	total := 0.0
	for _, d := range details {
		if d.FinalFee.Amount == "" {
			continue
		}
		v, err := strconv.ParseFloat(d.FinalFee.Amount, 64)
		if err != nil {
			continue
		}
		total += v
	}
	total = float64(int(total*100+0.5)) / 100
	return &total, nil
}

func (c *httpClient) do(ctx context.Context, method, reqURL string, reqBody []byte, op string) ([]byte, error) {
	policy := c.retry
	policy.OnRetry = resilience.RetryLogger("spapi", op)

	return resilience.DoVal(ctx, policy, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		token, err := c.token(ctx)
		if err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if reqBody != nil {
			bodyReader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, eris.Wrap(err, "spapi: create request")
		}
		req.Header.Set("x-amz-access-token", token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "spapi: read response body")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("spapi: status %d: %s", resp.StatusCode, string(body))
			if resilience.RetryableStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return body, nil
	})
}
