// Package repo archives customer data for successfully shipped orders.
package repo

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/shipops/rate-shopper/internal/entities"
	"github.com/shipops/rate-shopper/pkg/trm"
)

type customerLogRepo struct {
	db  *sqlx.DB
	trm trm.Manager
	qb  sq.StatementBuilderType
}

func NewCustomerLog(db *sqlx.DB, manager trm.Manager) *customerLogRepo {
	return &customerLogRepo{
		db:  db,
		trm: manager,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Archive writes one customer_log row per order in a single transaction.
// Re-running a batch is safe: the (account, order_number) key makes the
// insert idempotent.
func (r *customerLogRepo) Archive(ctx context.Context, orders []*entities.Order) error {
	if len(orders) == 0 {
		return nil
	}

	return r.trm.Do(ctx, func(ctx context.Context) error {
		q := r.qb.Insert("customer_log").
			Columns(
				"customer_id", "order_source", "store_name", "account",
				"order_date", "order_number", "amount_paid", "customer_name",
				"street1", "street2", "city", "state", "country", "zip",
				"phone", "email",
			).
			Suffix("ON CONFLICT (account, order_number) DO NOTHING")

		for _, order := range orders {
			row := customerRowFromOrder(order)
			q = q.Values(
				row.CustomerID, row.OrderSource, row.StoreName, row.Account,
				row.OrderDate, row.OrderNumber, row.AmountPaid, row.CustomerName,
				row.Street1, row.Street2, row.City, row.State, row.Country, row.Zip,
				row.Phone, row.Email,
			)
		}

		query, args := q.MustSql()
		if _, err := r.execContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to archive customers: %w", err)
		}
		return nil
	})
}

func (r *customerLogRepo) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	tx := trm.ExtractTx(ctx)
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}
