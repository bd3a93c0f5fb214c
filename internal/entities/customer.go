package entities

import "strings"

type Customer struct {
	ID            int64
	Username      string
	Email         string
	Notes         string
	InternalNotes string

	BillTo Address
	ShipTo Address
}

// IsPOBox reports whether the shipping address is a PO box. PO-box
// destinations are deliverable by the postal carrier only.
func (c Customer) IsPOBox() bool {
	return strings.Contains(strings.ToUpper(c.ShipTo.Street1), "PO BOX")
}

// Rateable reports whether the destination has the fields every carrier
// rate request requires.
func (c Customer) Rateable() bool {
	return c.ShipTo.State != "" && c.ShipTo.Country != "" && c.ShipTo.PostalCode != ""
}
