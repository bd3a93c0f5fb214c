// Package fedex quotes the ground-network carrier. The carrier API
// contributes service availability and committed delivery timestamps; the
// prices written back always come from the order platform's own rate list.
package fedex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipops/rate-shopper/internal/carrier/names"
	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/rateengine"
	"github.com/shipops/rate-shopper/pkg/cache"
	"github.com/shipops/rate-shopper/pkg/oauth"
)

const (
	requestTimeout = 10 * time.Second
	commitLayout   = "2006-01-02T15:04:05"

	serviceGround       = "FedEx Ground®"
	serviceHomeDelivery = "FedEx Home Delivery®"
	serviceSmartPost    = "FedEx SmartPost®"

	// SmartPost is tiered by weight; the platform rates the two tiers as
	// distinct services.
	smartPostLightweight = "FedEx SmartPost parcel select lightweight"
	smartPostStandard    = "FedEx SmartPost parcel select"
)

// The lentics account carries a negotiated 3% markup on this carrier.
var surchargeFactor = decimal.NewFromFloat(1.03)

type Config struct {
	BaseURL       string
	AccountNumber string
	ClientID      string
	ClientSecret  string
}

type Client struct {
	httpc   *http.Client
	logger  *slog.Logger
	tokens  *oauth.TokenSource
	quotes  *cache.LRUCache
	baseURL string
	account string
}

func New(logger *slog.Logger, cfg Config, quotes *cache.LRUCache) (*Client, error) {
	httpc := &http.Client{Timeout: requestTimeout}
	tokens, err := oauth.NewTokenSource(httpc, oauth.Config{
		TokenURL:     cfg.BaseURL + "/oauth/token",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	if err != nil {
		return nil, &entities.FatalError{Err: fmt.Errorf("fedex: %w", err)}
	}
	return &Client{
		httpc:   httpc,
		logger:  logger.With(slog.String("carrier", "fedex")),
		tokens:  tokens,
		quotes:  quotes,
		baseURL: cfg.BaseURL,
		account: cfg.AccountNumber,
	}, nil
}

// BestRate returns the winning quote for this carrier, nil when the
// platform lists no rates for it (carrier not applicable to the package),
// and an error when the carrier API is unreachable.
func (c *Client) BestRate(ctx context.Context, order *entities.Order) (*entities.WinningRate, error) {
	platformQuotes, ok := order.PlatformRates(entities.CarrierFedEx)
	if !ok {
		return nil, nil
	}
	index := names.NewIndex(platformQuotes)

	reply, err := c.rateQuotes(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("fedex: rate quotes: %w", err)
	}

	options := c.shippingOptions(order, index, reply)
	order.Shipment.SmartPostNote = smartPostNote(options)

	winner, ok := rateengine.BestOption(options, order.DeliverBy)
	if !ok {
		return nil, nil
	}

	price := winner.Price
	if order.StoreName == "lentics" {
		price = price.Mul(surchargeFactor).Round(2)
	}
	serviceName := winner.ServiceName
	if platform, ok := index.PlatformName(serviceName); ok {
		serviceName = platform
	}
	return &entities.WinningRate{
		CarrierCode: entities.CarrierFedEx,
		ServiceName: serviceName,
		Price:       price,
	}, nil
}

// shippingOptions maps the carrier reply onto platform-priced options.
// Services the platform does not rate are dropped, so every surviving
// option carries a price the write-back can actually use.
func (c *Client) shippingOptions(order *entities.Order, index *names.Index, reply *rateReply) []entities.ShippingOption {
	var options []entities.ShippingOption
	for _, detail := range reply.Output.RateReplyDetails {
		serviceName := c.serviceName(order, detail)

		price, ok := index.Price(serviceName)
		if !ok {
			continue
		}

		var deliveryDate *time.Time
		if t, err := time.Parse(commitLayout, detail.Commit.DateDetail.DayFormat); err == nil {
			deliveryDate = &t
		} else {
			c.logger.Warn("unparseable commit date",
				slog.String("service", serviceName), slog.String("value", detail.Commit.DateDetail.DayFormat))
		}

		options = append(options, entities.ShippingOption{
			ServiceName:  serviceName,
			Price:        price,
			DeliveryDate: deliveryDate,
		})
	}
	return options
}

// serviceName reconciles the carrier's spelling with the platform's.
// Ground and Home Delivery are the same network; the carrier reports
// whichever matches the address, the platform rates the opposite one for
// the other address type. SmartPost is renamed by weight tier.
func (c *Client) serviceName(order *entities.Order, detail rateReplyDetail) string {
	name := detail.ServiceName
	switch {
	case name == serviceSmartPost:
		if order.Shipment.WeightOunces() < 16 {
			return smartPostLightweight
		}
		return smartPostStandard
	case order.Customer.ShipTo.Residential && name == serviceGround:
		return serviceHomeDelivery
	case !order.Customer.ShipTo.Residential && name == serviceHomeDelivery:
		return serviceGround
	}
	return name
}

// smartPostNote is surfaced on the platform front end via customField2 so
// packers can see the slower SmartPost commitment next to the chosen one.
func smartPostNote(options []entities.ShippingOption) string {
	date := "None Provided"
	for _, o := range options {
		if o.ServiceName != smartPostLightweight && o.ServiceName != smartPostStandard {
			continue
		}
		if o.DeliveryDate != nil {
			date = o.DeliveryDate.Format("2006-01-02")
		}
		break
	}
	return "SmartPost D-Date: " + date
}

func (c *Client) rateQuotes(ctx context.Context, order *entities.Order) (*rateReply, error) {
	cacheKey := fmt.Sprintf("fedex|%s|%s|%s|%.1f",
		order.Shipment.From.Zip5(), order.Customer.ShipTo.Zip5(), order.ShipDate, order.Shipment.WeightOunces())
	if raw, ok := c.quotes.Get(cacheKey); ok {
		var reply rateReply
		if err := json.Unmarshal(raw, &reply); err == nil {
			return &reply, nil
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.ratePayload(order))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rate/v1/rates/quotes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Locale", "en_US")
	req.Header.Set("X-Customer-Transaction-Id", uuid.NewString())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var reply rateReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode rate reply: %w", err)
	}
	c.quotes.Set(cacheKey, raw)
	return &reply, nil
}

func (c *Client) ratePayload(order *entities.Order) rateRequest {
	return rateRequest{
		AccountNumber: accountNumber{Value: c.account},
		RequestedShipment: requestedShipment{
			Shipper: party{Address: partyAddress{
				PostalCode:          order.Shipment.From.PostalCode,
				StateOrProvinceCode: order.Shipment.From.State,
				CountryCode:         order.Shipment.From.Country,
			}},
			Recipient: party{Address: partyAddress{
				PostalCode:          order.Customer.ShipTo.Zip5(),
				StateOrProvinceCode: order.Customer.ShipTo.State,
				CountryCode:         order.Customer.ShipTo.Country,
				Residential:         order.Customer.ShipTo.Residential,
			}},
			ShipDateStamp:   order.ShipDate,
			PickupType:      "USE_SCHEDULED_PICKUP",
			RateRequestType: []string{"ACCOUNT"},
			PackagingType:   "YOUR_PACKAGING",
			RequestedPackageLineItems: []packageLineItem{{
				Weight: packageWeight{
					Units: "LB",
					Value: order.Shipment.WeightOunces() / 16,
				},
			}},
		},
	}
}
