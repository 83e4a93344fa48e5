package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/money"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/repository"
)

var _ repository.TransactionRepository = (*TransactionDB)(nil)

// TransactionDB is the spending_transactions table.
type TransactionDB struct {
	conn *sql.DB
}

// Transactions returns the accessor for the spending_transactions table.
func (db *DB) Transactions() *TransactionDB {
	return &TransactionDB{conn: db.conn}
}

// Create stores a transaction for the user identified by externalID.
//
// The owner lookup and the insert are one statement: INSERT ... SELECT only
// produces a row when the user exists, so "no row returned" means the user is
// not registered. Splitting it into a SELECT then an INSERT would give the
// same answer with an extra round trip.
func (t *TransactionDB) Create(ctx context.Context, externalID string, in model.NewTransaction) (*model.SpendingTransaction, error) {
	cents, err := in.Amount.Cents()
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting transaction: %w", err)
	}

	tx := &model.SpendingTransaction{
		Amount:          in.Amount,
		Category:        in.Category,
		Merchant:        in.Merchant,
		TransactionDate: in.TransactionDate,
		CreatedAt:       time.Now().UTC(),
	}

	err = t.conn.QueryRowContext(ctx,
		`INSERT INTO spending_transactions
		     (user_id, amount_cents, category, merchant, transaction_date, created_at)
		 SELECT id, ?, ?, ?, ?, ?
		 FROM users WHERE external_id = ?
		 RETURNING id, user_id`,
		cents,
		in.Category,
		in.Merchant,
		in.TransactionDate.Format(model.DateLayout),
		tx.CreatedAt,
		externalID,
	).Scan(&tx.ID, &tx.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("User not found. Register first")
		}
		return nil, fmt.Errorf("sqlite: inserting transaction: %w", err)
	}

	return tx, nil
}

// ListByExternalID returns every transaction owned by the user.
//
// ORDER BY transaction_date DESC puts the most recent purchase first. Dates
// are stored as YYYY-MM-DD text, so string order is date order. The id ASC
// tie-break keeps same-day purchases in the order they were recorded.
func (t *TransactionDB) ListByExternalID(ctx context.Context, externalID string) ([]model.SpendingTransaction, error) {
	rows, err := t.conn.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.amount_cents, t.category, t.merchant,
		        t.transaction_date, t.created_at
		 FROM spending_transactions t
		 JOIN users u ON u.id = t.user_id
		 WHERE u.external_id = ?
		 ORDER BY t.transaction_date DESC, t.id ASC`,
		externalID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing transactions: %w", err)
	}
	defer rows.Close()

	// Never nil: an empty history should encode as [] rather than null.
	txs := make([]model.SpendingTransaction, 0)

	for rows.Next() {
		var (
			tx    model.SpendingTransaction
			cents int64
			date  string
		)
		if err := rows.Scan(
			&tx.ID, &tx.UserID, &cents, &tx.Category, &tx.Merchant,
			&date, &tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning transaction row: %w", err)
		}

		tx.Amount = money.FromCents(cents)
		tx.TransactionDate, err = time.Parse(model.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("sqlite: transaction %d has malformed date %q: %w", tx.ID, date, err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating transactions: %w", err)
	}

	return txs, nil
}

// SumByCategory aggregates the user's spend per category in SQL. Amounts are
// integer cents capped at money.MaxCents, so SUM is exact and stays in int64
// range for any realistic history.
func (t *TransactionDB) SumByCategory(ctx context.Context, externalID string) ([]model.CategoryTotal, error) {
	rows, err := t.conn.QueryContext(ctx,
		`SELECT t.category, SUM(t.amount_cents)
		 FROM spending_transactions t
		 JOIN users u ON u.id = t.user_id
		 WHERE u.external_id = ?
		 GROUP BY t.category
		 ORDER BY t.category ASC`,
		externalID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: summing by category: %w", err)
	}
	defer rows.Close()

	totals := make([]model.CategoryTotal, 0)

	for rows.Next() {
		var (
			ct    model.CategoryTotal
			cents int64
		)
		if err := rows.Scan(&ct.Category, &cents); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category total: %w", err)
		}
		ct.Total = money.FromCents(cents)
		totals = append(totals, ct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating category totals: %w", err)
	}

	return totals, nil
}
