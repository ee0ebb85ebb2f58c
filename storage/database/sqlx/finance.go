package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/finance"
)

type transactionRow struct {
	ID          string    `db:"id"`
	Kind        string    `db:"kind"`
	AmountCents int64     `db:"amount_cents"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	OccurredOn  time.Time `db:"occurred_on"`
	RecordedBy  string    `db:"recorded_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r transactionRow) toModel() finance.Transaction {
	txn := finance.Transaction(r)
	txn.CreatedAt = txn.CreatedAt.UTC()
	txn.UpdatedAt = txn.UpdatedAt.UTC()
	return txn
}

const transactionColumns = `id, kind, amount_cents, category, description,
occurred_on, recorded_by, created_at, updated_at`

type financeRepository struct {
	db *sqlx.DB
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *sqlx.DB) *financeRepository {
	return &financeRepository{db: db}
}

func (repo *financeRepository) CreateTransaction(ctx context.Context, txn finance.Transaction) error {
	q := `INSERT INTO ledger_transaction (` + transactionColumns + `) VALUES (
:id, :kind, :amount_cents, :category, :description,
:occurred_on, :recorded_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, transactionRow(txn)); err != nil {
		return errors.Wrap(err, "inserting transaction")
	}
	return nil
}

func (repo *financeRepository) GetTransactionByID(ctx context.Context, id string) (finance.Transaction, error) {
	var row transactionRow
	q := `SELECT ` + transactionColumns + ` FROM ledger_transaction WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return finance.Transaction{}, finance.ErrNotFound
		}
		return finance.Transaction{}, errors.Wrap(err, "getting transaction")
	}
	return row.toModel(), nil
}

func (repo *financeRepository) QueryTransactions(ctx context.Context, filter finance.QueryFilter) ([]finance.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM ledger_transaction`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Kind != "" {
		conds = append(conds, "kind = "+arg(filter.Kind))
	}
	if filter.Category != "" {
		conds = append(conds, "category = "+arg(filter.Category))
	}
	if !filter.From.IsZero() {
		conds = append(conds, "occurred_on >= "+arg(filter.From.Format(dateLayout)))
	}
	if !filter.To.IsZero() {
		conds = append(conds, "occurred_on < "+arg(filter.To.Format(dateLayout)))
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_on DESC, created_at DESC"

	var rows []transactionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying transactions")
	}
	txns := make([]finance.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.toModel())
	}
	return txns, nil
}

func (repo *financeRepository) UpdateTransaction(ctx context.Context, txn finance.Transaction) error {
	q := `UPDATE ledger_transaction SET
kind = :kind, amount_cents = :amount_cents, category = :category,
description = :description, occurred_on = :occurred_on, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, transactionRow(txn))
	if err != nil {
		return errors.Wrap(err, "updating transaction")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return finance.ErrNotFound
	}
	return nil
}

func (repo *financeRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM ledger_transaction WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting transaction")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return finance.ErrNotFound
	}
	return nil
}

func (repo *financeRepository) SummarizeRange(ctx context.Context, from, to time.Time) (finance.Summary, error) {
	var sum struct {
		IncomeCents  int64 `db:"income_cents"`
		ExpenseCents int64 `db:"expense_cents"`
	}
	q := `SELECT
COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'income'), 0) AS income_cents,
COALESCE(SUM(amount_cents) FILTER (WHERE kind = 'expense'), 0) AS expense_cents
FROM ledger_transaction WHERE occurred_on >= $1 AND occurred_on < $2`
	if err := repo.db.GetContext(ctx, &sum, q, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return finance.Summary{}, errors.Wrap(err, "summing ledger")
	}
	return finance.Summary{IncomeCents: sum.IncomeCents, ExpenseCents: sum.ExpenseCents}, nil
}
