package entities

// Tag ids are assigned by the order platform per account when the tag is
// created on the front end; there is no API to resolve them, so the table
// is maintained by hand.
var tagIDs = map[string]map[FailureReason]int64{
	"nuveau": {
		ReasonMultiOrder:     52943,
		ReasonNoDims:         52944,
		ReasonReady:          52987,
		ReasonNoDeliveryDate: 52992,
		ReasonNoAPIKeys:      53068,
		ReasonNoPlatformRate: 53339,
		ReasonNoUPSRate:      53341,
		ReasonNoUSPSRate:     53342,
		ReasonNoFedexRate:    53343,
		ReasonShippingNotSet: 53344,
		ReasonDoubleOrder:    53526,
	},
	"lentics": {
		ReasonMultiOrder:     166210,
		ReasonNoDims:         166211,
		ReasonReady:          166212,
		ReasonNoDeliveryDate: 166703,
		ReasonNoAPIKeys:      166471,
		ReasonNoPlatformRate: 166704,
		ReasonNoUPSRate:      166702,
		ReasonNoUSPSRate:     166701,
		ReasonNoFedexRate:    166700,
		ReasonShippingNotSet: 166699,
		ReasonDoubleOrder:    166945,
	},
}

// TagID resolves the numeric tag id for a (store, reason) pair.
func TagID(store string, reason FailureReason) (int64, bool) {
	account, ok := tagIDs[store]
	if !ok {
		return 0, false
	}
	id, ok := account[reason]
	return id, ok
}
