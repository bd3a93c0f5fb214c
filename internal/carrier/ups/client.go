// Package ups quotes the dual-account aggregator. One transit-time call
// serves both billing accounts; prices come from the platform's rate lists
// for each account, with the negotiated 3% markup applied to the primary.
package ups

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
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
	dateLayout     = "2006-01-02"

	serviceGround      = "UPS Ground"
	serviceGroundSaver = "UPS Ground Saver"

	residentialIndicator = "01"
	commercialIndicator  = "02"
)

// The primary account carries a negotiated 3% markup; the walleted account
// bills at the platform price.
var surchargeFactor = decimal.NewFromFloat(1.03)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

type Client struct {
	httpc   *http.Client
	logger  *slog.Logger
	tokens  *oauth.TokenSource
	quotes  *cache.LRUCache
	baseURL string
}

func New(logger *slog.Logger, cfg Config, quotes *cache.LRUCache) (*Client, error) {
	httpc := &http.Client{Timeout: requestTimeout}
	tokens, err := oauth.NewTokenSource(httpc, oauth.Config{
		TokenURL:     cfg.BaseURL + "/security/v1/oauth/token",
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	if err != nil {
		return nil, &entities.FatalError{Err: fmt.Errorf("ups: %w", err)}
	}
	return &Client{
		httpc:   httpc,
		logger:  logger.With(slog.String("carrier", "ups")),
		tokens:  tokens,
		quotes:  quotes,
		baseURL: cfg.BaseURL,
	}, nil
}

// candidate pairs a priced option with the billing account it came from
// and the platform's own spelling of the service, so the champion
// write-back bills the right account under a name the platform resolves.
type candidate struct {
	option       entities.ShippingOption
	account      string
	platformName string
}

// BestRate returns the winning quote across both billing accounts, nil
// when the platform lists rates for neither, and an error when the transit
// API is unreachable.
func (c *Client) BestRate(ctx context.Context, order *entities.Order) (*entities.WinningRate, error) {
	_, primaryOK := order.PlatformRates(entities.CarrierUPS)
	_, walletedOK := order.PlatformRates(entities.CarrierUPSWalleted)
	if !primaryOK && !walletedOK {
		return nil, nil
	}

	services, err := c.transitTimes(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("ups: transit times: %w", err)
	}

	services = filterByDeadline(services, order.DeliverBy)
	if order.Customer.ShipTo.Residential {
		services = addGroundSaver(services)
	}

	candidates := c.priceServices(order, services)
	if len(candidates) == 0 {
		return nil, nil
	}

	options := make([]entities.ShippingOption, len(candidates))
	for i, cand := range candidates {
		options[i] = cand.option
	}
	winner, ok := rateengine.BestOption(options, order.DeliverBy, rateengine.WithGroundSaverVeto(serviceGroundSaver))
	if !ok {
		return nil, nil
	}

	account := entities.CarrierUPSWalleted
	serviceName := names.Canonical(winner.ServiceName)
	for _, cand := range candidates {
		if cand.option.ServiceName == winner.ServiceName && cand.option.Price.Equal(winner.Price) {
			account = cand.account
			serviceName = cand.platformName
			break
		}
	}
	return &entities.WinningRate{
		CarrierCode: account,
		ServiceName: serviceName,
		Price:       winner.Price,
	}, nil
}

type transitService struct {
	Level        string
	Description  string
	TransitDays  int
	DeliveryDate time.Time
	DayOfWeek    string
}

func filterByDeadline(services []transitService, deliverBy time.Time) []transitService {
	kept := services[:0]
	for _, s := range services {
		if !s.DeliveryDate.After(deliverBy) {
			kept = append(kept, s)
		}
	}
	return kept
}

// addGroundSaver synthesizes the saver tier from the Ground commitment.
// The transit API never returns it: saver rides the same linehaul one day
// behind Ground, two days when Ground lands on Saturday since saver does
// not deliver Sunday.
func addGroundSaver(services []transitService) []transitService {
	for _, s := range services {
		if s.Description != serviceGround {
			continue
		}
		extra := 1
		if s.DayOfWeek == "SAT" {
			extra = 2
		}
		date := s.DeliveryDate.AddDate(0, 0, extra)
		services = append(services, transitService{
			Level:        "GNS",
			Description:  serviceGroundSaver,
			TransitDays:  s.TransitDays + extra,
			DeliveryDate: date,
			DayOfWeek:    strings.ToUpper(date.Format("Mon")),
		})
		break
	}
	return services
}

// priceServices joins transit commitments against both accounts' platform
// rate lists. A service missing from an account's list produces no
// candidate for that account.
func (c *Client) priceServices(order *entities.Order, services []transitService) []candidate {
	var candidates []candidate
	for _, account := range []string{entities.CarrierUPSWalleted, entities.CarrierUPS} {
		quotes, ok := order.PlatformRates(account)
		if !ok {
			continue
		}
		index := names.NewIndex(quotes)
		for _, s := range services {
			price, ok := index.Price(s.Description)
			if !ok {
				continue
			}
			if account == entities.CarrierUPS {
				price = price.Mul(surchargeFactor).Round(2)
			}
			platformName := s.Description
			if name, ok := index.PlatformName(s.Description); ok {
				platformName = name
			}
			date := s.DeliveryDate
			candidates = append(candidates, candidate{
				option: entities.ShippingOption{
					ServiceName:  s.Description,
					Price:        price,
					DeliveryDate: &date,
				},
				account:      account,
				platformName: platformName,
			})
		}
	}
	return candidates
}

func (c *Client) transitTimes(ctx context.Context, order *entities.Order) ([]transitService, error) {
	payload := c.transitPayload(order)
	cacheKey := fmt.Sprintf("ups|%s|%s|%s|%s|%s",
		payload.OriginPostalCode, payload.DestinationPostalCode, payload.ShipDate, payload.Weight, payload.ResidentialIndicator)

	raw, ok := c.quotes.Get(cacheKey)
	if !ok {
		var err error
		raw, err = c.fetchTransitTimes(ctx, payload)
		if err != nil {
			return nil, err
		}
		c.quotes.Set(cacheKey, raw)
	}

	var reply transitReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode transit reply: %w", err)
	}

	services := make([]transitService, 0, len(reply.EMSResponse.Services))
	for _, s := range reply.EMSResponse.Services {
		date, err := time.Parse(dateLayout, s.DeliveryDate)
		if err != nil {
			c.logger.Warn("unparseable delivery date",
				slog.String("service", s.ServiceLevelDescription), slog.String("value", s.DeliveryDate))
			continue
		}
		services = append(services, transitService{
			Level:        s.ServiceLevel,
			Description:  s.ServiceLevelDescription,
			TransitDays:  s.BusinessTransitDays,
			DeliveryDate: date,
			DayOfWeek:    s.DeliveryDayOfWeek,
		})
	}
	return services, nil
}

func (c *Client) fetchTransitTimes(ctx context.Context, payload transitRequest) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/shipments/v1/transittimes", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("transactionSrc", "rate-shopper")
	req.Header.Set("transId", strings.ReplaceAll(uuid.NewString(), "-", ""))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, data)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) transitPayload(order *entities.Order) transitRequest {
	indicator := commercialIndicator
	if order.Customer.ShipTo.Residential {
		indicator = residentialIndicator
	}
	// The transit API wants kilograms; the platform reports ounces.
	weight := strconv.FormatFloat(0.028*order.Shipment.WeightOunces(), 'f', -1, 64)

	return transitRequest{
		OriginCountryCode:     "US",
		OriginCityName:        order.Shipment.From.City,
		OriginPostalCode:      order.Shipment.From.PostalCode,
		DestinationCountry:    domesticCountry(order.Customer.ShipTo.Country),
		DestinationState:      order.Customer.ShipTo.State,
		DestinationCity:       order.Customer.ShipTo.City,
		DestinationPostalCode: strings.ReplaceAll(order.Customer.ShipTo.PostalCode, "-", ""),
		Weight:                weight,
		WeightUnitOfMeasure:   "KGS",
		BillType:              "03",
		ShipDate:              order.ShipDate,
		ResidentialIndicator:  indicator,
		AVVFlag:               true,
		NumberOfPackages:      "1",
	}
}

func domesticCountry(country string) string {
	if country == "US" || country == "CA" {
		return country
	}
	return "US"
}
