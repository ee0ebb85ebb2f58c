package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/secmun/podium/core/member"
)

var ErrNotFound = errors.New("transaction not found")

type Repository interface {
	CreateTransaction(ctx context.Context, txn Transaction) error
	GetTransactionByID(ctx context.Context, id string) (Transaction, error)
	QueryTransactions(ctx context.Context, filter QueryFilter) ([]Transaction, error)
	UpdateTransaction(ctx context.Context, txn Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// SummarizeRange sums the ledger by kind over [from, to).
	SummarizeRange(ctx context.Context, from, to time.Time) (Summary, error)
}

type Service interface {
	Record(ctx context.Context, nt NewTransaction, recorder member.Member) (Transaction, error)
	Query(ctx context.Context, filter QueryFilter) ([]Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	Update(ctx context.Context, id string, utxn UpdateTransaction) (Transaction, error)
	Delete(ctx context.Context, id string) error
	Summarize(ctx context.Context, from, to time.Time) (Summary, error)
}

type service struct {
	repo Repository
}

var _ Service = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) Record(ctx context.Context, nt NewTransaction, recorder member.Member) (Transaction, error) {
	now := time.Now().UTC()
	txn := Transaction{
		ID:          uuid.New().String(),
		Kind:        nt.Kind,
		AmountCents: nt.AmountCents,
		Category:    nt.Category,
		Description: nt.Description,
		OccurredOn:  nt.OccurredOn,
		RecordedBy:  recorder.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := svc.repo.CreateTransaction(ctx, txn); err != nil {
		return Transaction{}, errors.Wrap(err, "recording transaction")
	}
	return txn, nil
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Transaction, error) {
	filter.Clean()
	return svc.repo.QueryTransactions(ctx, filter)
}

func (svc *service) Get(ctx context.Context, id string) (Transaction, error) {
	return svc.repo.GetTransactionByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, utxn UpdateTransaction) (Transaction, error) {
	txn, err := svc.repo.GetTransactionByID(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	if utxn.Kind != "" {
		txn.Kind = utxn.Kind
	}
	if utxn.AmountCents != nil {
		txn.AmountCents = *utxn.AmountCents
	}
	if utxn.Category != "" {
		txn.Category = utxn.Category
	}
	if utxn.Description != nil {
		txn.Description = *utxn.Description
	}
	if utxn.OccurredOn != nil {
		txn.OccurredOn = *utxn.OccurredOn
	}
	txn.UpdatedAt = time.Now().UTC()

	if err := svc.repo.UpdateTransaction(ctx, txn); err != nil {
		return Transaction{}, errors.Wrap(err, "updating transaction")
	}
	return txn, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteTransaction(ctx, id)
}

func (svc *service) Summarize(ctx context.Context, from, to time.Time) (Summary, error) {
	sum, err := svc.repo.SummarizeRange(ctx, from, to)
	if err != nil {
		return Summary{}, errors.Wrap(err, "summarizing ledger")
	}
	sum.BalanceCents = sum.IncomeCents - sum.ExpenseCents
	return sum, nil
}
