package fedex

import (
	"io"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/pkg/cache"
)

func newTestServer(t *testing.T, reply rateReply) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/rate/v1/rates/quotes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Customer-Transaction-Id"))
		json.NewEncoder(w).Encode(reply)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		BaseURL:       baseURL,
		AccountNumber: "740561073",
		ClientID:      "id",
		ClientSecret:  "secret",
	}, cache.NewLRUCache(16, time.Minute))
	require.NoError(t, err)
	return c
}

func testOrder(residential bool, weightOz float64) *entities.Order {
	deliverBy := time.Date(2026, time.March, 9, 23, 59, 0, 0, time.UTC)
	return &entities.Order{
		ID:        1001,
		StoreName: "nuveau",
		ShipDate:  "2026-03-04",
		DeliverBy: deliverBy,
		Rates: map[string][]entities.RateQuote{
			entities.CarrierFedEx: {
				{ServiceName: "FedEx Home Delivery®", Price: decimal.NewFromFloat(9.10)},
				{ServiceName: "FedEx Ground®", Price: decimal.NewFromFloat(8.90)},
				{ServiceName: "FedEx SmartPost parcel select lightweight", Price: decimal.NewFromFloat(6.40)},
				{ServiceName: "FedEx SmartPost parcel select", Price: decimal.NewFromFloat(7.30)},
			},
		},
		Shipment: entities.Shipment{
			Weight: entities.Weight{Value: weightOz, Units: "ounces"},
			From:   entities.Address{PostalCode: "49022", State: "MI", Country: "US"},
		},
		Customer: entities.Customer{
			ShipTo: entities.Address{PostalCode: "45402", State: "OH", Country: "US", Residential: residential},
		},
	}
}

func detail(service, commit string) rateReplyDetail {
	return rateReplyDetail{
		ServiceName: service,
		Commit:      commitDetail{DateDetail: commitDateDetail{DayFormat: commit}},
	}
}

func TestBestRateNotApplicableWithoutPlatformRates(t *testing.T) {
	c := newTestClient(t, newTestServer(t, rateReply{}).URL)
	order := testOrder(true, 40)
	order.Rates = nil

	winner, err := c.BestRate(context.Background(), order)
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestBestRateResidentialGroundSwap(t *testing.T) {
	// The carrier reports Ground for a residential address; the platform
	// rates Home Delivery for it.
	srv := newTestServer(t, rateReply{Output: rateOutput{RateReplyDetails: []rateReplyDetail{
		detail("FedEx Ground®", "2026-03-06T16:00:00"),
	}}})
	c := newTestClient(t, srv.URL)
	order := testOrder(true, 40)
	order.Rates[entities.CarrierFedEx] = []entities.RateQuote{
		{ServiceName: "FedEx Home Delivery®", Price: decimal.NewFromFloat(9.10)},
	}

	winner, err := c.BestRate(context.Background(), order)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "FedEx Home Delivery®", winner.ServiceName)
	assert.Equal(t, entities.CarrierFedEx, winner.CarrierCode)
	assert.True(t, winner.Price.Equal(decimal.NewFromFloat(9.10)))
}

func TestBestRateCommercialHomeDeliverySwap(t *testing.T) {
	srv := newTestServer(t, rateReply{Output: rateOutput{RateReplyDetails: []rateReplyDetail{
		detail("FedEx Home Delivery®", "2026-03-06T16:00:00"),
	}}})
	c := newTestClient(t, srv.URL)
	order := testOrder(false, 40)
	order.Rates[entities.CarrierFedEx] = []entities.RateQuote{
		{ServiceName: "FedEx Ground®", Price: decimal.NewFromFloat(8.90)},
	}

	winner, err := c.BestRate(context.Background(), order)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "FedEx Ground®", winner.ServiceName)
}

func TestBestRateSmartPostWeightTiers(t *testing.T) {
	reply := rateReply{Output: rateOutput{RateReplyDetails: []rateReplyDetail{
		detail("FedEx SmartPost®", "2026-03-07T16:00:00"),
	}}}

	testCases := []struct {
		name     string
		weightOz float64
		want     string
		price    float64
	}{
		{"under a pound is lightweight", 12, "FedEx SmartPost parcel select lightweight", 6.40},
		{"a pound and over is standard", 16, "FedEx SmartPost parcel select", 7.30},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, newTestServer(t, reply).URL)
			order := testOrder(true, tc.weightOz)

			winner, err := c.BestRate(context.Background(), order)
			require.NoError(t, err)
			require.NotNil(t, winner)
			assert.Equal(t, tc.want, winner.ServiceName)
			assert.True(t, winner.Price.Equal(decimal.NewFromFloat(tc.price)))
			assert.Equal(t, "SmartPost D-Date: 2026-03-07", order.Shipment.SmartPostNote)
		})
	}
}

func TestBestRateDropsServicesThePlatformDoesNotRate(t *testing.T) {
	srv := newTestServer(t, rateReply{Output: rateOutput{RateReplyDetails: []rateReplyDetail{
		detail("FedEx Priority Overnight®", "2026-03-05T10:30:00"),
		detail("FedEx Home Delivery®", "2026-03-06T16:00:00"),
	}}})
	c := newTestClient(t, srv.URL)
	order := testOrder(true, 40)

	winner, err := c.BestRate(context.Background(), order)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.Equal(t, "FedEx Home Delivery®", winner.ServiceName)
	assert.Equal(t, "SmartPost D-Date: None Provided", order.Shipment.SmartPostNote)
}

func TestBestRateLenticsSurcharge(t *testing.T) {
	srv := newTestServer(t, rateReply{Output: rateOutput{RateReplyDetails: []rateReplyDetail{
		detail("FedEx Home Delivery®", "2026-03-06T16:00:00"),
	}}})
	c := newTestClient(t, srv.URL)
	order := testOrder(true, 40)
	order.StoreName = "lentics"
	order.Rates[entities.CarrierFedEx] = []entities.RateQuote{
		{ServiceName: "FedEx Home Delivery®", Price: decimal.NewFromFloat(10.00)},
	}

	winner, err := c.BestRate(context.Background(), order)
	require.NoError(t, err)
	require.NotNil(t, winner)
	assert.True(t, winner.Price.Equal(decimal.NewFromFloat(10.30)), "got %s", winner.Price)
}

func TestBestRateNoQualifyingCommitment(t *testing.T) {
	// Commit lands after the deliver-by deadline.
	srv := newTestServer(t, rateReply{Output: rateOutput{RateReplyDetails: []rateReplyDetail{
		detail("FedEx Home Delivery®", "2026-03-12T16:00:00"),
	}}})
	c := newTestClient(t, srv.URL)
	order := testOrder(true, 40)

	winner, err := c.BestRate(context.Background(), order)
	require.NoError(t, err)
	assert.Nil(t, winner)
}

func TestBestRateCarrierAPIFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/rate/v1/rates/quotes", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "SERVICE.UNAVAILABLE", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	winner, err := c.BestRate(context.Background(), testOrder(true, 40))
	require.Error(t, err)
	assert.Nil(t, winner)
}

func TestRateQuotesUsesCache(t *testing.T) {
	var calls int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	})
	mux.HandleFunc("/rate/v1/rates/quotes", func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(rateReply{Output: rateOutput{RateReplyDetails: []rateReplyDetail{
			detail("FedEx Home Delivery®", "2026-03-06T16:00:00"),
		}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	for i := 0; i < 3; i++ {
		_, err := c.BestRate(context.Background(), testOrder(true, 40))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls, "identical shipments must hit the quote cache")
}
