package entities

import "github.com/shopspring/decimal"

type Dimensions struct {
	Length float64
	Width  float64
	Height float64
	Units  string
}

type Weight struct {
	Value float64
	Units string
}

type Address struct {
	Name        string
	Company     string
	Street1     string
	Street2     string
	Street3     string
	City        string
	State       string
	PostalCode  string
	Country     string
	Phone       string
	Residential bool
}

// Zip5 returns the 5-digit prefix of the postal code, the only part the
// carrier APIs accept.
func (a Address) Zip5() string {
	if len(a.PostalCode) > 5 {
		return a.PostalCode[:5]
	}
	return a.PostalCode
}

type LineItem struct {
	OrderItemID       int64
	LineItemKey       string
	ProductID         int64
	SKU               string
	Name              string
	Quantity          int
	UnitPrice         decimal.Decimal
	TaxAmount         decimal.Decimal
	ImageURL          string
	UPC               string
	WarehouseLocation string
	Adjustment        bool
}

// Shipment carries everything rate requests need. Weight and dimensions
// must be fully populated before any carrier is queried; multi-item orders
// get them from the box-sizing resolver first.
type Shipment struct {
	Dimensions Dimensions
	Weight     Weight

	InsuranceOptions     map[string]any
	InternationalOptions map[string]any
	ShippingAmount       decimal.Decimal

	// RawItems keeps every line including adjustments for the write-back
	// payload; Items holds only real products.
	RawItems []LineItem
	Items    []LineItem

	// From is the ship-from address resolved from the warehouse id.
	From Address

	RequestedService string
	ServiceCode      string
	PackageCode      string

	// SmartPostNote is surfaced on the platform UI via customField2.
	SmartPostNote string
}

// Primary returns the single line item of a non-multi order.
func (s *Shipment) Primary() LineItem {
	if len(s.Items) == 0 {
		return LineItem{}
	}
	return s.Items[0]
}

// HasDims reports whether the shipment is ready for rate requests.
func (s *Shipment) HasDims() bool {
	return s.Dimensions.Length > 0 && s.Dimensions.Width > 0 && s.Dimensions.Height > 0 && s.Weight.Value > 0
}

// WeightOunces converts the shipment weight to ounces.
func (s *Shipment) WeightOunces() float64 {
	switch s.Weight.Units {
	case "pounds":
		return s.Weight.Value * 16
	case "grams":
		return s.Weight.Value / 28.3495
	default: // platform default is ounces
		return s.Weight.Value
	}
}
