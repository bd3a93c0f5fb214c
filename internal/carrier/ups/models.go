package ups

type transitRequest struct {
	OriginCountryCode     string `json:"originCountryCode"`
	OriginCityName        string `json:"originCityName"`
	OriginPostalCode      string `json:"originPostalCode"`
	DestinationCountry    string `json:"destinationCountryCode"`
	DestinationState      string `json:"destinationStateProvince"`
	DestinationCity       string `json:"destinationCityName"`
	DestinationPostalCode string `json:"destinationPostalCode"`
	Weight                string `json:"weight"`
	WeightUnitOfMeasure   string `json:"weightUnitOfMeasure"`
	BillType              string `json:"billType"`
	ShipDate              string `json:"shipDate"`
	ResidentialIndicator  string `json:"residentialIndicator"`
	AVVFlag               bool   `json:"avvFlag"`
	NumberOfPackages      string `json:"numberOfPackages"`
}

type transitReply struct {
	EMSResponse emsResponse `json:"emsResponse"`
}

type emsResponse struct {
	Services []emsService `json:"services"`
}

type emsService struct {
	ServiceLevel            string `json:"serviceLevel"`
	ServiceLevelDescription string `json:"serviceLevelDescription"`
	BusinessTransitDays     int    `json:"businessTransitDays"`
	DeliveryDate            string `json:"deliveryDate"`
	DeliveryDayOfWeek       string `json:"deliveryDayOfWeek"`
}
