package shipstation

import (
	"github.com/shopspring/decimal"
)

// Wire models for the order platform's v1 REST API. The platform owns
// these shapes; only the fields the pipeline reads are typed, everything
// written back untouched rides in passthrough maps.

type OrdersPage struct {
	Orders []RawOrder `json:"orders"`
	Total  int        `json:"total"`
	Page   int        `json:"page"`
	Pages  int        `json:"pages"`
}

type RawOrder struct {
	OrderID     int64  `json:"orderId" validate:"required"`
	OrderKey    string `json:"orderKey" validate:"required"`
	OrderNumber string `json:"orderNumber" validate:"required"`
	OrderStatus string `json:"orderStatus"`

	OrderDate   string `json:"orderDate"`
	CreateDate  string `json:"createDate"`
	PaymentDate string `json:"paymentDate"`
	ShipByDate  string `json:"shipByDate"`
	ShipDate    string `json:"shipDate"`

	OrderTotal decimal.Decimal `json:"orderTotal"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
	TaxAmount  decimal.Decimal `json:"taxAmount"`

	CustomerID       int64      `json:"customerId"`
	CustomerUsername string     `json:"customerUsername"`
	CustomerEmail    string     `json:"customerEmail"`
	CustomerNotes    string     `json:"customerNotes"`
	InternalNotes    string     `json:"internalNotes"`
	BillTo           RawAddress `json:"billTo"`
	ShipTo           RawAddress `json:"shipTo" validate:"required"`

	Items []RawItem `json:"items" validate:"required,min=1,dive"`

	Gift          bool   `json:"gift"`
	GiftMessage   string `json:"giftMessage"`
	PaymentMethod string `json:"paymentMethod"`

	RequestedShippingService string `json:"requestedShippingService"`
	CarrierCode              string `json:"carrierCode"`
	ServiceCode              string `json:"serviceCode"`
	PackageCode              string `json:"packageCode"`
	Confirmation             string `json:"confirmation"`

	ShippingAmount decimal.Decimal `json:"shippingAmount"`
	Weight         *RawWeight      `json:"weight"`
	Dimensions     *RawDimensions  `json:"dimensions"`

	InsuranceOptions     map[string]any `json:"insuranceOptions"`
	InternationalOptions map[string]any `json:"internationalOptions"`
	AdvancedOptions      map[string]any `json:"advancedOptions" validate:"required"`
	TagIDs               []int64        `json:"tagIds"`
}

type RawAddress struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	Street1     string `json:"street1"`
	Street2     string `json:"street2"`
	Street3     string `json:"street3"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
	Phone       string `json:"phone"`
	Residential bool   `json:"residential"`
}

type RawItem struct {
	OrderItemID       int64           `json:"orderItemId"`
	LineItemKey       string          `json:"lineItemKey"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	ProductID         int64           `json:"productId"`
	ImageURL          string          `json:"imageUrl"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	TaxAmount         decimal.Decimal `json:"taxAmount"`
	UPC               string          `json:"upc"`
	WarehouseLocation string          `json:"warehouseLocation"`
	Adjustment        bool            `json:"adjustment"`
}

type RawWeight struct {
	Value       float64 `json:"value"`
	Units       string  `json:"units"`
	WeightUnits int     `json:"WeightUnits,omitempty"`
}

type RawDimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  string  `json:"units"`
}

// Advanced-options accessors. The platform serializes the map's numbers
// as JSON floats.

func (o *RawOrder) advancedInt(key string) int64 {
	switch v := o.AdvancedOptions[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func (o *RawOrder) advancedString(key string) string {
	s, _ := o.AdvancedOptions[key].(string)
	return s
}

func (o *RawOrder) StoreID() int64     { return o.advancedInt("storeId") }
func (o *RawOrder) WarehouseID() int64 { return o.advancedInt("warehouseId") }
func (o *RawOrder) Source() string     { return o.advancedString("source") }

// DeliverByRaw returns the deliver-by deadline carried in customField1,
// empty when the store never set one.
func (o *RawOrder) DeliverByRaw() string { return o.advancedString("customField1") }

// rateResponse is one entry of the platform's own rate quote list.
type rateResponse struct {
	ServiceName  string          `json:"serviceName"`
	ServiceCode  string          `json:"serviceCode"`
	ShipmentCost decimal.Decimal `json:"shipmentCost"`
	OtherCost    decimal.Decimal `json:"otherCost"`
}

// UpdateOrderPayload is the createorder body that writes the selected
// rate back. Field set mirrors what the platform round-trips.
type UpdateOrderPayload struct {
	OrderNumber  string `json:"orderNumber"`
	OrderKey     string `json:"orderKey"`
	OrderDate    string `json:"orderDate"`
	PaymentDate  string `json:"paymentDate"`
	ShipByDate   string `json:"shipByDate"`
	OrderStatus  string `json:"orderStatus"`
	CustomerID   int64  `json:"customerId"`
	CustomerUser string `json:"customerUsername"`
	CustomerMail string `json:"customerEmail"`

	BillTo RawAddress `json:"billTo"`
	ShipTo RawAddress `json:"shipTo"`

	Items []RawItem `json:"items"`

	AmountPaid     decimal.Decimal `json:"amountPaid"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	ShippingAmount decimal.Decimal `json:"shippingAmount"`

	CustomerNotes string `json:"customerNotes"`
	InternalNotes string `json:"internalNotes"`
	Gift          bool   `json:"gift"`
	GiftMessage   string `json:"giftMessage"`
	PaymentMethod string `json:"paymentMethod"`

	RequestedShippingService string `json:"requestedShippingService"`
	CarrierCode              string `json:"carrierCode"`
	ServiceCode              string `json:"serviceCode"`
	PackageCode              string `json:"packageCode"`
	Confirmation             string `json:"confirmation"`
	ShipDate                 string `json:"shipDate"`

	Weight     RawWeight     `json:"weight"`
	Dimensions RawDimensions `json:"dimensions"`

	InsuranceOptions     map[string]any `json:"insuranceOptions"`
	InternationalOptions map[string]any `json:"internationalOptions"`
	AdvancedOptions      map[string]any `json:"advancedOptions"`
	TagIDs               []int64        `json:"tagIds"`
}
