package entities

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Carrier codes as the order platform knows them. "ups" and "ups_walleted"
// are two billing accounts of the same aggregation API.
const (
	CarrierUPS         = "ups"
	CarrierUPSWalleted = "ups_walleted"
	CarrierFedEx       = "fedex"
	CarrierUSPS        = "stamps_com"
)

// AllCarriers lists the carrier codes rates are requested for from the
// order platform's own rate endpoint.
var AllCarriers = []string{CarrierUPS, CarrierFedEx, CarrierUPSWalleted, CarrierUSPS}

var (
	ErrUnknownWarehouse = errors.New("no ship-from location for warehouse")
	ErrNoChampionRate   = errors.New("no carrier produced a qualifying rate")
)

// RateQuote is one (service, price) entry from the order platform's rate
// list. Platform prices are authoritative; carrier APIs contribute only
// service availability and delivery dates.
type RateQuote struct {
	ServiceName string
	Price       decimal.Decimal
}

// Order is the root aggregate for one processing pass. It is built from a
// single raw platform record, mutated through the pipeline, and discarded
// after the write-back.
type Order struct {
	ID          int64
	Key         string
	Number      string
	StoreName   string // platform account: "nuveau" or "lentics"
	StoreID     int64
	WarehouseID int64
	Status      string

	// Platform-owned timestamps, passed back verbatim on update.
	OrderDate   string
	CreateDate  string
	PaymentDate string
	ShipByDate  string

	OrderTotal    decimal.Decimal
	AmountPaid    decimal.Decimal
	TaxAmount     decimal.Decimal
	PaymentMethod string
	Confirmation  string
	Source        string

	IsGift      bool
	GiftMessage string
	TagIDs      []int64

	// Passthrough for the update payload; customField1 carries the
	// deliver-by deadline, customField2 receives the SmartPost note.
	AdvancedOptions map[string]any

	// ShipDate is the YYYY-MM-DD date the warehouse will tender the
	// package, per the Mon/Wed/Fri warehouse calendar.
	ShipDate  string
	DeliverBy time.Time

	IsMultiOrder  bool
	IsDoubleOrder bool

	// Rates holds the platform's own quotes per carrier code, and
	// ServiceCodes maps platform service names to service codes for the
	// update payload.
	Rates        map[string][]RateQuote
	ServiceCodes map[string]string

	WinningRate *WinningRate

	Shipment Shipment
	Customer Customer
}

// PlatformRates returns the platform quote list for a carrier, reporting
// whether the carrier is available for this order at all.
func (o *Order) PlatformRates(carrier string) ([]RateQuote, bool) {
	quotes, ok := o.Rates[carrier]
	return quotes, ok && len(quotes) > 0
}
