package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/secmun/podium/core/finance"
)

type financeRepository struct {
	transactions *transactionTable
}

var _ finance.Repository = (*financeRepository)(nil) // interface compliance check

func NewFinanceRepository(db *DB) *financeRepository {
	return &financeRepository{transactions: db.transaction}
}

func (repo *financeRepository) CreateTransaction(ctx context.Context, txn finance.Transaction) error {
	repo.transactions.Lock()
	defer repo.transactions.Unlock()
	if txn.ID == "" {
		return errEmptyID
	}
	repo.transactions.table[txn.ID] = &txn
	return nil
}

func (repo *financeRepository) GetTransactionByID(ctx context.Context, id string) (finance.Transaction, error) {
	repo.transactions.RLock()
	defer repo.transactions.RUnlock()

	if txn, ok := repo.transactions.table[id]; ok {
		return *txn, nil
	}
	return finance.Transaction{}, finance.ErrNotFound
}

func (repo *financeRepository) QueryTransactions(ctx context.Context, filter finance.QueryFilter) ([]finance.Transaction, error) {
	repo.transactions.RLock()
	defer repo.transactions.RUnlock()

	var txns []finance.Transaction
	for _, txn := range repo.transactions.table {
		if filter.Kind != "" && txn.Kind != filter.Kind {
			continue
		}
		if filter.Category != "" && txn.Category != filter.Category {
			continue
		}
		if !filter.From.IsZero() && txn.OccurredOn.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !txn.OccurredOn.Before(filter.To) {
			continue
		}
		txns = append(txns, *txn)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].OccurredOn.After(txns[j].OccurredOn) })
	return txns, nil
}

func (repo *financeRepository) UpdateTransaction(ctx context.Context, txn finance.Transaction) error {
	repo.transactions.Lock()
	defer repo.transactions.Unlock()

	if _, ok := repo.transactions.table[txn.ID]; !ok {
		return finance.ErrNotFound
	}
	repo.transactions.table[txn.ID] = &txn
	return nil
}

func (repo *financeRepository) DeleteTransaction(ctx context.Context, id string) error {
	repo.transactions.Lock()
	defer repo.transactions.Unlock()

	if _, ok := repo.transactions.table[id]; !ok {
		return finance.ErrNotFound
	}
	delete(repo.transactions.table, id)
	return nil
}

func (repo *financeRepository) SummarizeRange(ctx context.Context, from, to time.Time) (finance.Summary, error) {
	repo.transactions.RLock()
	defer repo.transactions.RUnlock()

	var sum finance.Summary
	for _, txn := range repo.transactions.table {
		if txn.OccurredOn.Before(from) || !txn.OccurredOn.Before(to) {
			continue
		}
		switch txn.Kind {
		case finance.KindIncome:
			sum.IncomeCents += txn.AmountCents
		case finance.KindExpense:
			sum.ExpenseCents += txn.AmountCents
		}
	}
	return sum, nil
}
