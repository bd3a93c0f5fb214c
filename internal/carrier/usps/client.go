// Package usps quotes the postal carrier through the SDCGetLocations
// service-commitment API. The API speaks XML and numeric mail-class codes;
// this package decodes both and joins the commitments against the
// platform's postal rate list.
package usps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/rateengine"
	"github.com/shipops/rate-shopper/pkg/cache"
)

const (
	requestTimeout   = 10 * time.Second
	acceptDateLayout = "02-Jan-2006"
	deliveryLayout   = "2006-01-02"

	// Only street-address commitments apply; "2" is PO-box delivery.
	streetAddressDestType = "1"
)

// Commitment dates come back without a zone; the postal network quotes
// them in Eastern time.
var easternOffset = time.FixedZone("EST", -5*3600)

// mailClassNames decodes the API's numeric MailClass codes. Expedited
// commitments append their commitment name ("2-Day") to the decoded class.
var mailClassNames = map[string]string{
	"1": "Priority Mail Express",
	"2": "Priority Mail",
	"3": "USPS Ground Advantage",
	"4": "Standard Mail",
	"5": "Periodicals",
	"6": "USPS Ground Advantage, LIVES, Offshore",
	"7": "USPS Ground Advantage (1 to 70lbs)",
	"9": "USPS Ground Advantage (1 to 70lbs)",
}

// commitmentForService maps the platform's postal service names to the
// commitment names the API reports. Platform services not listed here are
// never selected.
var commitmentForService = map[string]string{
	"USPS First Class Mail - Large Envelope or Flat": "USPS Ground Advantage",
	"USPS First Class Mail - Package":                "USPS Ground Advantage",
	"USPS Ground Advantage - Package":                "USPS Ground Advantage",
	"USPS Priority Mail - Package":                   "Priority Mail 2-Day",
	"USPS Priority Mail Express - Package":           "Priority Mail Express 2-Day",
}

type Config struct {
	BaseURL  string
	UserID   string
	Password string
}

type Client struct {
	httpc   *http.Client
	logger  *slog.Logger
	quotes  *cache.LRUCache
	baseURL string
	userID  string
	pass    string
}

func New(logger *slog.Logger, cfg Config, quotes *cache.LRUCache) (*Client, error) {
	if cfg.UserID == "" || cfg.Password == "" {
		return nil, &entities.FatalError{Err: fmt.Errorf("usps: missing web-tools credentials")}
	}
	return &Client{
		httpc:   &http.Client{Timeout: requestTimeout},
		logger:  logger.With(slog.String("carrier", "usps")),
		quotes:  quotes,
		baseURL: cfg.BaseURL,
		userID:  cfg.UserID,
		pass:    cfg.Password,
	}, nil
}

// BestRate returns the winning postal quote, nil when the platform lists
// no postal rates, and an error when the commitment API is unreachable.
func (c *Client) BestRate(ctx context.Context, order *entities.Order) (*entities.WinningRate, error) {
	platformQuotes, ok := order.PlatformRates(entities.CarrierUSPS)
	if !ok {
		return nil, nil
	}

	commitments, err := c.locations(ctx, order.ShipDate, order.Shipment.From.Zip5(), order.Customer.ShipTo.Zip5())
	if err != nil {
		return nil, fmt.Errorf("usps: locations: %w", err)
	}
	dates := deliveryDates(commitments)

	var options []entities.ShippingOption
	for _, q := range platformQuotes {
		commitment, ok := commitmentForService[q.ServiceName]
		if !ok {
			continue
		}
		option := entities.ShippingOption{ServiceName: q.ServiceName, Price: q.Price}
		if date, ok := dates[commitment]; ok {
			d := date
			option.DeliveryDate = &d
		}
		options = append(options, option)
	}

	winner, ok := rateengine.BestOption(options, order.DeliverBy)
	if !ok {
		return nil, nil
	}
	return &entities.WinningRate{
		CarrierCode: entities.CarrierUSPS,
		ServiceName: winner.ServiceName,
		Price:       winner.Price,
	}, nil
}

// deliveryDates flattens the response into commitment name -> scheduled
// delivery date. Expedited commitments are de-duplicated by mail class
// keeping the first (fastest) entry; standard commitments only count for
// street-address delivery.
func deliveryDates(resp *locationsResponse) map[string]time.Time {
	dates := make(map[string]time.Time)

	seenClass := make(map[string]bool)
	for _, commitment := range resp.Expedited.Commitments {
		if seenClass[commitment.MailClass] {
			continue
		}
		seenClass[commitment.MailClass] = true

		name := decodeMailClass(commitment.MailClass, commitment.CommitmentName)
		if date, ok := parseDeliveryDate(commitment.scheduledDate()); ok {
			dates[name] = date
		}
	}

	for _, option := range resp.NonExpedited {
		if option.DestType != streetAddressDestType {
			continue
		}
		name := decodeMailClass(option.MailClass, "")
		if _, exists := dates[name]; exists {
			continue
		}
		if date, ok := parseDeliveryDate(option.ScheduledDate); ok {
			dates[name] = date
		}
	}
	return dates
}

func decodeMailClass(code, commitmentName string) string {
	name, ok := mailClassNames[code]
	if !ok {
		return "MailClass " + code
	}
	if commitmentName != "" {
		return name + " " + commitmentName
	}
	return name
}

func parseDeliveryDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(deliveryLayout, s, easternOffset)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (c *Client) locations(ctx context.Context, shipDate, fromZip, destZip string) (*locationsResponse, error) {
	cacheKey := fmt.Sprintf("usps|%s|%s|%s", fromZip, destZip, shipDate)
	raw, ok := c.quotes.Get(cacheKey)
	if !ok {
		var err error
		raw, err = c.fetchLocations(ctx, shipDate, fromZip, destZip)
		if err != nil {
			return nil, err
		}
		c.quotes.Set(cacheKey, raw)
	}
	return parseLocations(raw)
}

func (c *Client) fetchLocations(ctx context.Context, shipDate, fromZip, destZip string) ([]byte, error) {
	accept, err := time.Parse("2006-01-02", shipDate)
	if err != nil {
		return nil, fmt.Errorf("bad ship date %q: %w", shipDate, err)
	}

	payload := fmt.Sprintf(
		"<SDCGetLocationsRequest USERID=%q PASSWORD=%q><MailClass>0</MailClass><OriginZIP>%s</OriginZIP><DestinationZIP>%s</DestinationZIP><AcceptDate>%s</AcceptDate></SDCGetLocationsRequest>",
		c.userID, c.pass, fromZip, destZip, accept.Format(acceptDateLayout))

	q := url.Values{"API": {"SDCGetLocations"}, "XML": {payload}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shippingapi.dll?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

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
