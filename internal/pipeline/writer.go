package pipeline

import (
	"github.com/shipops/rate-shopper/internal/dims"
	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/internal/shipstation"
)

// Shipping-provider ids per (account, carrier). The winning carrier's
// charges are billed to the matching provider account via the
// bill-to-my-other-account redirect.
var shippingProviderIDs = map[string]map[string]int64{
	"nuveau": {
		entities.CarrierUSPS:        139051,
		entities.CarrierUPS:         659748,
		entities.CarrierFedEx:       203639,
		entities.CarrierUPSWalleted: 139292,
	},
	"lentics": {
		entities.CarrierUSPS:        89042,
		entities.CarrierUPS:         1227452,
		entities.CarrierFedEx:       465570,
		entities.CarrierUPSWalleted: 465647,
	},
}

// buildUpdatePayload assembles the createorder body that writes the
// winning rate back. Everything the pipeline never touched is passed
// through verbatim so the upsert cannot clobber platform-owned fields.
func buildUpdatePayload(order *entities.Order) shipstation.UpdateOrderPayload {
	winner := *order.WinningRate

	dimensions := order.Shipment.Dimensions
	packageCode := order.Shipment.PackageCode
	if packageCode == "" {
		packageCode = "package"
	}

	// Billy-bass boxes list a height that trips the postal oversize rule;
	// they ship flattened.
	if winner.CarrierCode == entities.CarrierUSPS && dims.IsBillyBass(order.Shipment.Primary().SKU) {
		dimensions.Height = 1
		packageCode = "package"
	}

	advanced := make(map[string]any, len(order.AdvancedOptions)+3)
	for k, v := range order.AdvancedOptions {
		advanced[k] = v
	}
	advanced["billToParty"] = "my_other_account"
	advanced["billToMyOtherAccount"] = shippingProviderIDs[order.StoreName][winner.CarrierCode]
	advanced["customField2"] = order.Shipment.SmartPostNote

	items := make([]shipstation.RawItem, 0, len(order.Shipment.RawItems))
	for _, it := range order.Shipment.RawItems {
		items = append(items, rawItem(it))
	}

	return shipstation.UpdateOrderPayload{
		OrderNumber:  order.Number,
		OrderKey:     order.Key,
		OrderDate:    order.OrderDate,
		PaymentDate:  order.PaymentDate,
		ShipByDate:   order.ShipByDate,
		OrderStatus:  order.Status,
		CustomerID:   order.Customer.ID,
		CustomerUser: order.Customer.Username,
		CustomerMail: order.Customer.Email,

		BillTo: rawAddress(order.Customer.BillTo),
		ShipTo: rawAddress(order.Customer.ShipTo),

		Items: items,

		AmountPaid:     order.AmountPaid,
		TaxAmount:      order.TaxAmount,
		ShippingAmount: order.Shipment.ShippingAmount,

		CustomerNotes: order.Customer.Notes,
		InternalNotes: order.Customer.InternalNotes,
		Gift:          order.IsGift,
		GiftMessage:   order.GiftMessage,
		PaymentMethod: order.PaymentMethod,

		RequestedShippingService: winner.ServiceName,
		CarrierCode:              winner.CarrierCode,
		ServiceCode:              order.ServiceCodes[winner.ServiceName],
		PackageCode:              packageCode,
		Confirmation:             order.Confirmation,
		ShipDate:                 order.ShipDate,

		Weight: shipstation.RawWeight{
			Value: order.Shipment.Weight.Value,
			Units: order.Shipment.Weight.Units,
		},
		Dimensions: shipstation.RawDimensions{
			Length: dimensions.Length,
			Width:  dimensions.Width,
			Height: dimensions.Height,
			Units:  "inches",
		},

		InsuranceOptions:     order.Shipment.InsuranceOptions,
		InternationalOptions: order.Shipment.InternationalOptions,
		AdvancedOptions:      advanced,
		TagIDs:               order.TagIDs,
	}
}

func rawAddress(a entities.Address) shipstation.RawAddress {
	return shipstation.RawAddress{
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

func rawItem(it entities.LineItem) shipstation.RawItem {
	return shipstation.RawItem{
		OrderItemID:       it.OrderItemID,
		LineItemKey:       it.LineItemKey,
		SKU:               it.SKU,
		Name:              it.Name,
		ProductID:         it.ProductID,
		ImageURL:          it.ImageURL,
		Quantity:          it.Quantity,
		UnitPrice:         it.UnitPrice,
		TaxAmount:         it.TaxAmount,
		UPC:               it.UPC,
		WarehouseLocation: it.WarehouseLocation,
		Adjustment:        it.Adjustment,
	}
}
