// Package shipstation is the order-platform client: order fetch, the
// platform's own rate quotes, order update, tagging, and store refresh,
// with the platform's cooperative rate-limit protocol baked in.
package shipstation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shipops/rate-shopper/internal/dims"
	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/pkg/utils"
)

const pageSize = 100

// Store ids per platform account. Tags and store refresh need them; the
// platform has a stores endpoint but these sets change rarely enough that
// the table is maintained by hand, matching the tag-id table.
var storeIDs = map[string]map[string]int64{
	"nuveau": {
		"HHB - WorX of Art": 335780,
		"Nuveau":            165397,
		"Nuveau Ebay":       317090,
		"Nuveau Etsy":       165604,
	},
	"lentics": {
		"3D Art Co Amazon":    399784,
		"3D Art Co Etsy":      399729,
		"Gift Haven - Amazon": 399912,
	},
}

type Config struct {
	BaseURL   string
	Account   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

type Client struct {
	httpc   *http.Client
	logger  *slog.Logger
	baseURL string
	account string
	key     string
	secret  string

	limiter rateLimiter
}

func New(logger *slog.Logger, cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, &entities.FatalError{Err: fmt.Errorf("shipstation: missing credentials for account %q", cfg.Account)}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger.With(slog.String("client", "shipstation"), slog.String("account", cfg.Account)),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		account: cfg.Account,
		key:     cfg.APIKey,
		secret:  cfg.APISecret,
	}, nil
}

func (c *Client) Account() string { return c.account }

// rateLimiter implements the platform's back-pressure protocol: every
// response carries X-Rate-Limit-Remaining and X-Rate-Limit-Reset; once
// remaining drops to 2 or fewer, the next call waits out the reset window.
type rateLimiter struct {
	mu         sync.Mutex
	sleepUntil time.Time
}

func (rl *rateLimiter) wait(ctx context.Context) error {
	rl.mu.Lock()
	until := rl.sleepUntil
	rl.mu.Unlock()

	d := time.Until(until)
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rl *rateLimiter) observe(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-Rate-Limit-Remaining"))
	if err != nil {
		return
	}
	reset, err := strconv.Atoi(h.Get("X-Rate-Limit-Reset"))
	if err != nil {
		return
	}
	if remaining <= 2 {
		rl.mu.Lock()
		rl.sleepUntil = time.Now().Add(time.Duration(reset) * time.Second)
		rl.mu.Unlock()
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	c.limiter.observe(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPError{Status: resp.StatusCode, Endpoint: endpoint, Body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return nil
}

type HTTPError struct {
	Status   int
	Endpoint string
	Body     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("shipstation: %s returned %d: %s", e.Endpoint, e.Status, e.Body)
}

// RefreshStores asks the platform to re-sync each active store so all new
// orders are loaded before the batch fetch.
func (c *Client) RefreshStores(ctx context.Context) {
	for name, id := range storeIDs[c.account] {
		var res struct {
			Success any `json:"success"`
		}
		endpoint := fmt.Sprintf("/stores/refreshstore?storeId=%d", id)
		if err := c.do(ctx, http.MethodPost, endpoint, nil, &res); err != nil {
			c.logger.Warn("failed to refresh store", slog.String("store", name), slog.Any("error", err))
			continue
		}
		if !successValue(res.Success) {
			c.logger.Warn("store refresh not acknowledged", slog.String("store", name))
		}
	}
}

// successValue tolerates the platform returning success as bool or "true".
func successValue(v any) bool {
	switch s := v.(type) {
	case bool:
		return s
	case string:
		return strings.EqualFold(s, "true")
	default:
		return false
	}
}

// FetchAwaitingShipment pages through every order awaiting shipment. Each
// page fetch is retried with a fixed delay; a page that never loads fails
// the whole fetch so the run can be re-triggered rather than silently
// processing a partial batch.
func (c *Client) FetchAwaitingShipment(ctx context.Context) ([]RawOrder, error) {
	retryCfg := utils.RetryConfig{MaxAttempts: 10, InitialDelay: 5 * time.Second, Multiplier: 1}

	var orders []RawOrder
	page := 1
	for {
		q := url.Values{
			"orderStatus": {"awaiting_shipment"},
			"page":        {strconv.Itoa(page)},
			"pageSize":    {strconv.Itoa(pageSize)},
			"sortBy":      {"OrderDate"},
			"sortDir":     {"ASC"},
		}

		var pageData OrdersPage
		err := utils.Retry(retryCfg, func() error {
			return c.do(ctx, http.MethodGet, "/orders/list?"+q.Encode(), nil, &pageData)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch orders page %d: %w", page, err)
		}

		orders = append(orders, pageData.Orders...)
		if page >= pageData.Pages || len(pageData.Orders) == 0 {
			break
		}
		page++
	}

	c.logger.Info("fetched awaiting-shipment orders", slog.Int("count", len(orders)))
	return orders, nil
}

var titleCaser = cases.Title(language.AmericanEnglish)

// GetRates pulls the platform's own quotes for every carrier into
// order.Rates and order.ServiceCodes. A 500 for one carrier means the
// package is not valid for it and that carrier is skipped; any other
// failure aborts, surfacing as "No SS Carrier Rates".
func (c *Client) GetRates(ctx context.Context, order *entities.Order) error {
	if order.Rates == nil {
		order.Rates = make(map[string][]entities.RateQuote)
	}
	if order.ServiceCodes == nil {
		order.ServiceCodes = make(map[string]string)
	}

	for _, carrier := range entities.AllCarriers {
		payload := c.ratePayload(order, carrier)

		var quotes []rateResponse
		err := c.do(ctx, http.MethodPost, "/shipments/getrates", payload, &quotes)
		if err != nil {
			var httpErr *HTTPError
			// Package details not valid for this specific carrier.
			if errors.As(err, &httpErr) && httpErr.Status == http.StatusInternalServerError {
				continue
			}
			return fmt.Errorf("get rates for %s: %w", carrier, err)
		}

		for _, q := range quotes {
			order.ServiceCodes[q.ServiceName] = q.ServiceCode
			order.Rates[carrier] = append(order.Rates[carrier], entities.RateQuote{
				ServiceName: q.ServiceName,
				Price:       q.ShipmentCost.Add(q.OtherCost).Round(2),
			})
		}
	}
	return nil
}

type ratePayload struct {
	CarrierCode    string        `json:"carrierCode"`
	ServiceCode    *string       `json:"serviceCode"`
	PackageCode    string        `json:"packageCode"`
	FromPostalCode string        `json:"fromPostalCode"`
	FromCity       string        `json:"fromCity"`
	FromState      string        `json:"fromState"`
	FromWarehouse  int64         `json:"fromWarehouseId"`
	ToState        string        `json:"toState"`
	ToCountry      string        `json:"toCountry"`
	ToPostalCode   string        `json:"toPostalCode"`
	ToCity         string        `json:"toCity"`
	Weight         RawWeight     `json:"weight"`
	Dimensions     RawDimensions `json:"dimensions"`
	Confirmation   string        `json:"confirmation"`
	Residential    bool          `json:"residential"`
}

func (c *Client) ratePayload(order *entities.Order, carrier string) ratePayload {
	p := ratePayload{
		CarrierCode:    carrier,
		PackageCode:    "package",
		FromPostalCode: order.Shipment.From.PostalCode,
		FromCity:       order.Shipment.From.City,
		FromState:      strings.ToUpper(order.Shipment.From.State),
		FromWarehouse:  order.WarehouseID,
		ToState:        titleCaser.String(order.Customer.ShipTo.State),
		ToCountry:      domesticCountry(order.Customer.ShipTo.Country),
		ToPostalCode:   order.Customer.ShipTo.PostalCode,
		ToCity:         titleCaser.String(order.Customer.ShipTo.City),
		Weight:         RawWeight{Value: order.Shipment.WeightOunces(), Units: "ounces"},
		Dimensions: RawDimensions{
			Units:  "inches",
			Length: float64(int(order.Shipment.Dimensions.Length)),
			Width:  float64(int(order.Shipment.Dimensions.Width)),
			Height: float64(int(order.Shipment.Dimensions.Height)),
		},
		Confirmation: order.Confirmation,
		Residential:  order.Customer.ShipTo.Residential,
	}

	// Billy-bass packages rate against the postal carrier with a flattened
	// height; their listed box height triggers an oversize rule upstream.
	if carrier == entities.CarrierUSPS && dims.IsBillyBass(order.Shipment.Primary().SKU) {
		p.Dimensions.Height = 1
	}
	return p
}

func domesticCountry(country string) string {
	if country == "US" || country == "CA" {
		return country
	}
	return "US"
}

// UpdateOrder writes the selected rate back via the createorder upsert.
// Last write wins on the platform side.
func (c *Client) UpdateOrder(ctx context.Context, payload UpdateOrderPayload) error {
	return c.do(ctx, http.MethodPost, "/orders/createorder", payload, nil)
}

// AddTag applies a status tag to an order.
func (c *Client) AddTag(ctx context.Context, orderID, tagID int64) error {
	var res struct {
		Success any `json:"success"`
	}
	payload := map[string]int64{"orderId": orderID, "tagId": tagID}
	if err := c.do(ctx, http.MethodPost, "/orders/addtag", payload, &res); err != nil {
		return err
	}
	if !successValue(res.Success) {
		return fmt.Errorf("shipstation: addtag not acknowledged for order %d", orderID)
	}
	return nil
}
