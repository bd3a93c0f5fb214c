package usps

import (
	"encoding/xml"
	"fmt"
)

// The web-tools endpoint answers 200 even for failures, putting the fault
// in an <Error> document instead.

type locationsResponse struct {
	XMLName      xml.Name       `xml:"SDCGetLocationsResponse"`
	Expedited    expedited      `xml:"Expedited"`
	NonExpedited []nonExpedited `xml:"NonExpedited"`
}

type expedited struct {
	Commitments []commitment `xml:"Commitment"`
}

type commitment struct {
	MailClass      string               `xml:"MailClass"`
	CommitmentName string               `xml:"CommitmentName"`
	CommitmentSeq  string               `xml:"CommitmentSeq"`
	Locations      []commitmentLocation `xml:"Location"`
}

type commitmentLocation struct {
	ScheduledDate string `xml:"SDD"`
}

// scheduledDate returns the first location's scheduled delivery date;
// the API nests one Location per drop point and the first is the direct
// route.
func (c commitment) scheduledDate() string {
	if len(c.Locations) == 0 {
		return ""
	}
	return c.Locations[0].ScheduledDate
}

type nonExpedited struct {
	MailClass     string `xml:"MailClass"`
	DestType      string `xml:"NonExpeditedDestType"`
	SvcStdDays    string `xml:"SvcStdDays"`
	ScheduledDate string `xml:"SchedDlvryDate"`
}

type apiError struct {
	XMLName     xml.Name `xml:"Error"`
	Number      string   `xml:"Number"`
	Description string   `xml:"Description"`
}

func parseLocations(raw []byte) (*locationsResponse, error) {
	var fault apiError
	if err := xml.Unmarshal(raw, &fault); err == nil {
		return nil, fmt.Errorf("api error %s: %s", fault.Number, fault.Description)
	}

	var resp locationsResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode locations response: %w", err)
	}
	return &resp, nil
}
