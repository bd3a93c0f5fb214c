package rateengine

import "github.com/shipops/rate-shopper/internal/entities"

// Orders fulfilled from the Stallion warehouses cannot ship FedEx; that
// fulfillment source has no FedEx contract.
var stallionWarehouseIDs = map[int64]bool{
	665600:  true,
	1097040: true,
}

// Champion compares the per-carrier winners and picks the global cheapest.
// The FedEx candidate is excluded entirely for Stallion-warehouse orders,
// even when it is the cheapest overall. Returns false when no candidate
// remains.
func Champion(warehouseID int64, candidates []entities.WinningRate) (entities.WinningRate, bool) {
	var champion entities.WinningRate
	found := false
	for _, c := range candidates {
		if stallionWarehouseIDs[warehouseID] && c.CarrierCode == entities.CarrierFedEx {
			continue
		}
		if !found || c.Price.Cmp(champion.Price) < 0 {
			champion = c
			found = true
		}
	}
	return champion, found
}
