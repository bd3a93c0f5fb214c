package repo

import (
	"database/sql"

	"github.com/shipops/rate-shopper/internal/entities"
)

// storeNames decodes platform store ids for the archive. Stores not listed
// here archive with an empty name.
var storeNames = map[int64]string{
	165397: "Nuveau Amazon",
	399784: "Lentics Amazon",
	399912: "Gift Haven Amazon",
	399729: "3D Art Co Etsy",
	165604: "Nuveau Etsy",
}

type customerRow struct {
	CustomerID   int64          `db:"customer_id"`
	OrderSource  sql.NullString `db:"order_source"`
	StoreName    sql.NullString `db:"store_name"`
	Account      string         `db:"account"`
	OrderDate    sql.NullString `db:"order_date"`
	OrderNumber  string         `db:"order_number"`
	AmountPaid   string         `db:"amount_paid"`
	CustomerName sql.NullString `db:"customer_name"`
	Street1      sql.NullString `db:"street1"`
	Street2      sql.NullString `db:"street2"`
	City         sql.NullString `db:"city"`
	State        sql.NullString `db:"state"`
	Country      sql.NullString `db:"country"`
	Zip          sql.NullString `db:"zip"`
	Phone        sql.NullString `db:"phone"`
	Email        sql.NullString `db:"email"`
}

func customerRowFromOrder(order *entities.Order) customerRow {
	ship := order.Customer.ShipTo
	return customerRow{
		CustomerID:   order.Customer.ID,
		OrderSource:  nullString(order.Source),
		StoreName:    nullString(storeNames[order.StoreID]),
		Account:      order.StoreName,
		OrderDate:    nullString(order.OrderDate),
		OrderNumber:  order.Number,
		AmountPaid:   order.AmountPaid.StringFixed(2),
		CustomerName: nullString(ship.Name),
		Street1:      nullString(ship.Street1),
		Street2:      nullString(ship.Street2),
		City:         nullString(ship.City),
		State:        nullString(ship.State),
		Country:      nullString(ship.Country),
		Zip:          nullString(ship.PostalCode),
		Phone:        nullString(ship.Phone),
		Email:        nullString(order.Customer.Email),
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
