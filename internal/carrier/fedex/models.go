package fedex

// Request and reply shapes for the carrier's rate-quote endpoint, trimmed
// to the fields this flow reads and writes.

type rateRequest struct {
	AccountNumber     accountNumber     `json:"accountNumber"`
	RequestedShipment requestedShipment `json:"requestedShipment"`
}

type accountNumber struct {
	Value string `json:"value"`
}

type requestedShipment struct {
	Shipper                   party             `json:"shipper"`
	Recipient                 party             `json:"recipient"`
	ShipDateStamp             string            `json:"shipDateStamp"`
	PickupType                string            `json:"pickupType"`
	PackagingType             string            `json:"packagingType"`
	RateRequestType           []string          `json:"rateRequestType"`
	RequestedPackageLineItems []packageLineItem `json:"requestedPackageLineItems"`
}

type party struct {
	Address partyAddress `json:"address"`
}

type partyAddress struct {
	PostalCode          string `json:"postalCode"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
	CountryCode         string `json:"countryCode"`
	Residential         bool   `json:"residential,omitempty"`
}

type packageLineItem struct {
	Weight packageWeight `json:"weight"`
}

type packageWeight struct {
	Units string  `json:"units"`
	Value float64 `json:"value"`
}

type rateReply struct {
	Output rateOutput `json:"output"`
}

type rateOutput struct {
	RateReplyDetails []rateReplyDetail `json:"rateReplyDetails"`
}

type rateReplyDetail struct {
	ServiceName string       `json:"serviceName"`
	Commit      commitDetail `json:"commit"`
}

type commitDetail struct {
	DateDetail commitDateDetail `json:"dateDetail"`
}

type commitDateDetail struct {
	DayFormat string `json:"dayFormat"`
}
