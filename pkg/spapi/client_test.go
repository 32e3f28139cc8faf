package spapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		_, _ = w.Write([]byte(`{"access_token": "tok-123", "expires_in": 3600}`))
	}))
}

func testCreds() Credentials {
	return Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "refresh-token",
	}
}

const pricingBody = `{
	"payload": [{
		"Product": {
			"CompetitivePricing": {
				"CompetitivePrices": {
					"CompetitivePrice": [
						{
							"condition": "New",
							"fulfillmentChannel": "Merchant",
							"Price": {"ListingPrice": {"Amount": 18.50}}
						},
						{
							"condition": "New",
							"fulfillmentChannel": "Amazon",
							"Price": {"ListingPrice": {"Amount": 21.90}}
						},
						{
							"condition": "Used",
							"fulfillmentChannel": "Amazon",
							"Price": {"ListingPrice": {"Amount": 9.99}}
						}
					]
				}
			}
		}
	}]
}`

func TestGetPriceWaterfall(t *testing.T) {
	tokenSrv := newTokenServer(t, nil)
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pricing/v1/competitivePricing", r.URL.Path)
		assert.Equal(t, "tok-123", r.Header.Get("x-amz-access-token"))
		assert.Equal(t, "B00TEST001", r.URL.Query().Get("Asins"))
		_, _ = w.Write([]byte(pricingBody))
	}))
	defer srv.Close()

	c := NewClient(testCreds(), "A13V1IB3VIYZZH",
		WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))

	// No buybox offer, so the lowest FBA price wins over FBM.
	price, err := c.GetPrice(context.Background(), "B00TEST001")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.InDelta(t, 21.90, *price, 0.001)
}

func TestGetPriceBuyboxWins(t *testing.T) {
	tokenSrv := newTokenServer(t, nil)
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"payload": [{
				"Product": {"CompetitivePricing": {"CompetitivePrices": {"CompetitivePrice": [
					{"condition": "New", "fulfillmentChannel": "Amazon",
					 "Price": {"ListingPrice": {"Amount": 24.00}}},
					{"condition": "New", "fulfillmentChannel": "Amazon", "belongsToRequester": true,
					 "Price": {"ListingPrice": {"Amount": 22.50}}}
				]}}}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(testCreds(), "M", WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))
	price, err := c.GetPrice(context.Background(), "B00TEST002")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.InDelta(t, 22.50, *price, 0.001)
}

func TestGetPriceNoData(t *testing.T) {
	tokenSrv := newTokenServer(t, nil)
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"payload": []}`))
	}))
	defer srv.Close()

	c := NewClient(testCreds(), "M", WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))
	price, err := c.GetPrice(context.Background(), "B00EMPTY01")
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestGetFees(t *testing.T) {
	tokenSrv := newTokenServer(t, nil)
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fees/v0/feesEstimate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{
			"FeesEstimateResult": {"FeesEstimate": {"FeeDetailList": [
				{"FeeType": "ReferralFee", "FinalFee": {"Amount": "7.49"}},
				{"FeeType": "FBAFees", "FinalFee": {"Amount": "4.51"}}
			]}}
		}`))
	}))
	defer srv.Close()

	c := NewClient(testCreds(), "M", WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))
	fees, err := c.GetFees(context.Background(), "B00FEES001", 49.90)
	require.NoError(t, err)
	require.NotNil(t, fees)
	assert.InDelta(t, 12.00, *fees, 0.001)
}

func TestGetFeesInvalidPrice(t *testing.T) {
	c := NewClient(testCreds(), "M")
	fees, err := c.GetFees(context.Background(), "B00FEES002", 0)
	require.NoError(t, err)
	assert.Nil(t, fees)
}

func TestGetFeesUnavailable(t *testing.T) {
	tokenSrv := newTokenServer(t, nil)
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"FeesEstimateResult": {"FeesEstimate": {"FeeDetailList": []}}}`))
	}))
	defer srv.Close()

	c := NewClient(testCreds(), "M", WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))
	fees, err := c.GetFees(context.Background(), "B00FEES003", 20)
	require.NoError(t, err)
	assert.Nil(t, fees)
}

func TestTokenCached(t *testing.T) {
	var tokenCalls atomic.Int32
	tokenSrv := newTokenServer(t, &tokenCalls)
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"payload": []}`))
	}))
	defer srv.Close()

	c := NewClient(testCreds(), "M", WithBaseURL(srv.URL), WithTokenURL(tokenSrv.URL))
	for i := 0; i < 3; i++ {
		_, err := c.GetPrice(context.Background(), "B00CACHE01")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), tokenCalls.Load())
}

func TestTokenFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer tokenSrv.Close()

	c := NewClient(testCreds(), "M", WithTokenURL(tokenSrv.URL))
	_, err := c.GetPrice(context.Background(), "B00NOPE001")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token status 401")
}
