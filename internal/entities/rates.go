package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShippingOption is one normalized carrier quote: the platform's service
// name, the platform's price, and the carrier's promised delivery date.
// DeliveryDate is nil when the carrier gave no commitment for the service.
type ShippingOption struct {
	ServiceName  string
	Price        decimal.Decimal
	DeliveryDate *time.Time
}

// WinningRate is the selected quote written back to the order platform.
type WinningRate struct {
	CarrierCode string
	ServiceName string
	Price       decimal.Decimal
}
