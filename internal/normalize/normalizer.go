// Package normalize turns raw platform orders into the pipeline's order
// aggregate: skip-rule filtering, field validation, ship-from resolution,
// deliver-by parsing, and ship-date scheduling.
package normalize

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/shipstation"
)

// ErrSkip marks orders excluded by business rules rather than failures.
var ErrSkip = errors.New("order excluded by skip rule")

const (
	deliverByLayout  = "01/02/2006 15:04:05"
	deliverByDefault = 5 * 24 * time.Hour
)

// Orders from these stores are fulfilled outside this flow.
var excludedStoreIDs = map[int64]struct{}{
	165349: {},
	203468: {},
	325291: {},
	433937: {},
}

// The dropship warehouse; its orders never rate-shop.
const dropshipWarehouseID = 779978

// Ship-from addresses by warehouse id. Unknown warehouse ids abort the run
// so a newly added warehouse cannot silently rate from the wrong origin.
var warehouseShipFrom = map[int64]entities.Address{}

func init() {
	michigan := entities.Address{
		Name:       "Shipping Department",
		Street1:    "3329 Territorial Rd",
		City:       "Benton Harbor",
		State:      "MI",
		PostalCode: "49022",
		Country:    "US",
	}
	indianapolis := entities.Address{
		Name:       "Shipping Department",
		Street1:    "1435 E Naomi St",
		City:       "Indianapolis",
		State:      "IN",
		PostalCode: "46203",
		Country:    "US",
	}
	for _, id := range []int64{486100, 98792, 1097041, 505774, 857645, 1097039} {
		warehouseShipFrom[id] = michigan
	}
	for _, id := range []int64{1097040, 665600} {
		warehouseShipFrom[id] = indianapolis
	}
}

type Normalizer struct {
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func New(logger *slog.Logger) *Normalizer {
	return &Normalizer{
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "normalizer")),
		now:      time.Now,
	}
}

// Normalize builds the order aggregate for one raw platform record.
// Returns ErrSkip for orders excluded by rule or too malformed to rate,
// and a fatal error for unrecognized warehouses.
func (n *Normalizer) Normalize(account string, raw shipstation.RawOrder) (*entities.Order, error) {
	if err := n.validate.Struct(raw); err != nil {
		n.logger.Warn("order failed validation",
			slog.Int64("order_id", raw.OrderID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: invalid order %d", ErrSkip, raw.OrderID)
	}

	if _, excluded := excludedStoreIDs[raw.StoreID()]; excluded {
		return nil, fmt.Errorf("%w: store %d", ErrSkip, raw.StoreID())
	}
	if raw.WarehouseID() == dropshipWarehouseID {
		return nil, fmt.Errorf("%w: dropship warehouse", ErrSkip)
	}
	if raw.OrderTotal.IsZero() {
		return nil, fmt.Errorf("%w: zero order total", ErrSkip)
	}
	if raw.ShipTo.State == "PR" {
		return nil, fmt.Errorf("%w: Puerto Rico destination", ErrSkip)
	}

	from, ok := warehouseShipFrom[raw.WarehouseID()]
	if !ok {
		return nil, &entities.FatalError{
			Err: fmt.Errorf("%w: %d (order %d)", entities.ErrUnknownWarehouse, raw.WarehouseID(), raw.OrderID),
		}
	}

	order := &entities.Order{
		ID:          raw.OrderID,
		Key:         raw.OrderKey,
		Number:      raw.OrderNumber,
		StoreName:   account,
		StoreID:     raw.StoreID(),
		WarehouseID: raw.WarehouseID(),
		Status:      raw.OrderStatus,

		OrderDate:   raw.OrderDate,
		CreateDate:  raw.CreateDate,
		PaymentDate: raw.PaymentDate,
		ShipByDate:  raw.ShipByDate,

		OrderTotal:    raw.OrderTotal,
		AmountPaid:    raw.AmountPaid,
		TaxAmount:     raw.TaxAmount,
		PaymentMethod: raw.PaymentMethod,
		Confirmation:  raw.Confirmation,
		Source:        raw.Source(),

		IsGift:      raw.Gift,
		GiftMessage: raw.GiftMessage,
		TagIDs:      raw.TagIDs,

		AdvancedOptions: raw.AdvancedOptions,
		ShipDate:        NextShipDate(n.now()).Format("2006-01-02"),
		DeliverBy:       n.deliverBy(raw),

		Customer: entities.Customer{
			ID:            raw.CustomerID,
			Username:      raw.CustomerUsername,
			Email:         raw.CustomerEmail,
			Notes:         raw.CustomerNotes,
			InternalNotes: raw.InternalNotes,
			BillTo:        address(raw.BillTo),
			ShipTo:        address(raw.ShipTo),
		},
	}

	order.Shipment = shipment(raw, from)
	order.IsMultiOrder, order.IsDoubleOrder = classifyItems(order.Shipment.Items)

	if !order.Customer.Rateable() {
		return nil, fmt.Errorf("%w: destination not rateable for order %d", ErrSkip, raw.OrderID)
	}
	if order.Customer.IsPOBox() {
		n.logger.Info("po-box destination", slog.Int64("order_id", order.ID))
	}

	return order, nil
}

// deliverBy parses the deadline from customField1, defaulting to five days
// out when the store never set one.
func (n *Normalizer) deliverBy(raw shipstation.RawOrder) time.Time {
	if s := raw.DeliverByRaw(); s != "" {
		if t, err := time.ParseInLocation(deliverByLayout, s, shipCalendarLocation()); err == nil {
			return t
		}
		n.logger.Warn("unparseable deliver-by, using default",
			slog.Int64("order_id", raw.OrderID), slog.String("value", s))
	}
	return n.now().Add(deliverByDefault)
}

func shipment(raw shipstation.RawOrder, from entities.Address) entities.Shipment {
	s := entities.Shipment{
		InsuranceOptions:     raw.InsuranceOptions,
		InternationalOptions: raw.InternationalOptions,
		ShippingAmount:       raw.ShippingAmount,
		From:                 from,
		RequestedService:     raw.RequestedShippingService,
		ServiceCode:          raw.ServiceCode,
		PackageCode:          raw.PackageCode,
	}
	if raw.Weight != nil {
		s.Weight = entities.Weight{Value: raw.Weight.Value, Units: raw.Weight.Units}
	}
	if raw.Dimensions != nil {
		s.Dimensions = entities.Dimensions{
			Length: raw.Dimensions.Length,
			Width:  raw.Dimensions.Width,
			Height: raw.Dimensions.Height,
			Units:  raw.Dimensions.Units,
		}
	}
	for _, it := range raw.Items {
		item := lineItem(it)
		s.RawItems = append(s.RawItems, item)
		if !it.Adjustment {
			s.Items = append(s.Items, item)
		}
	}
	return s
}

func lineItem(it shipstation.RawItem) entities.LineItem {
	return entities.LineItem{
		OrderItemID:       it.OrderItemID,
		LineItemKey:       it.LineItemKey,
		ProductID:         it.ProductID,
		SKU:               it.SKU,
		Name:              it.Name,
		Quantity:          it.Quantity,
		UnitPrice:         it.UnitPrice,
		TaxAmount:         it.TaxAmount,
		ImageURL:          it.ImageURL,
		UPC:               it.UPC,
		WarehouseLocation: it.WarehouseLocation,
		Adjustment:        it.Adjustment,
	}
}

// classifyItems reports (multi, double): multi when more than one distinct
// product line, double when a single line ships more than one unit.
// Adjustment lines are already filtered out.
func classifyItems(items []entities.LineItem) (bool, bool) {
	if len(items) > 1 {
		return true, false
	}
	if len(items) == 1 && items[0].Quantity > 1 {
		return false, true
	}
	return false, false
}

func address(a shipstation.RawAddress) entities.Address {
	return entities.Address{
		Name:        a.Name,
		Company:     a.Company,
		Street1:     a.Street1,
		Street2:     a.Street2,
		Street3:     a.Street3,
		City:        a.City,
		State:       a.State,
		PostalCode:  a.PostalCode,
		Country:     a.Country,
		Phone:       a.Phone,
		Residential: a.Residential,
	}
}
