package finance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secmun/podium/core/finance"
	"github.com/secmun/podium/core/member"
	dummydb "github.com/secmun/podium/storage/database/dummy"
)

var ctx = context.Background()

func newService(t *testing.T) finance.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return finance.NewService(dummydb.NewFinanceRepository(db))
}

func record(t *testing.T, svc finance.Service, kind string, amount int64, category string, on time.Time) finance.Transaction {
	t.Helper()
	txn, err := svc.Record(ctx, finance.NewTransaction{
		Kind:        kind,
		AmountCents: amount,
		Category:    category,
		OccurredOn:  on,
	}, member.Member{ID: "treasurer"})
	require.NoError(t, err)
	return txn
}

func Test_service_Record(t *testing.T) {
	svc := newService(t)
	on := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.Local)

	txn := record(t, svc, finance.KindIncome, 50_000, "dues", on)
	assert.Equal(t, "treasurer", txn.RecordedBy)
	assert.NotEmpty(t, txn.ID)

	got, err := svc.Get(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.AmountCents, got.AmountCents)
}

func Test_service_Query(t *testing.T) {
	svc := newService(t)
	april := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.Local)
	may := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.Local)

	record(t, svc, finance.KindIncome, 50_000, "dues", april)
	record(t, svc, finance.KindExpense, 20_000, "venue", april)
	record(t, svc, finance.KindExpense, 5_000, "printing", may)

	txns, err := svc.Query(ctx, finance.QueryFilter{Kind: finance.KindExpense})
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	txns, err = svc.Query(ctx, finance.QueryFilter{Category: "dues"})
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	txns, err = svc.Query(ctx, finance.QueryFilter{
		From: time.Date(2026, time.May, 1, 0, 0, 0, 0, time.Local),
		To:   time.Date(2026, time.June, 1, 0, 0, 0, 0, time.Local),
	})
	require.NoError(t, err)
	assert.Len(t, txns, 1)

	txns, err = svc.Query(ctx, finance.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func Test_service_Summarize(t *testing.T) {
	svc := newService(t)
	april := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.Local)
	may := time.Date(2026, time.May, 10, 0, 0, 0, 0, time.Local)

	record(t, svc, finance.KindIncome, 50_000, "dues", april)
	record(t, svc, finance.KindExpense, 20_000, "venue", april)
	record(t, svc, finance.KindExpense, 5_000, "printing", may) // outside range

	from := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)
	sum, err := svc.Summarize(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(50_000), sum.IncomeCents)
	assert.Equal(t, int64(20_000), sum.ExpenseCents)
	assert.Equal(t, int64(30_000), sum.BalanceCents)

	// balance may go negative
	sum, err = svc.Summarize(ctx, to, to.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(-5_000), sum.BalanceCents)
}

func Test_service_UpdateAndDelete(t *testing.T) {
	svc := newService(t)
	on := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.Local)

	txn := record(t, svc, finance.KindIncome, 50_000, "dues", on)

	amount := int64(60_000)
	updated, err := svc.Update(ctx, txn.ID, finance.UpdateTransaction{AmountCents: &amount})
	require.NoError(t, err)
	assert.Equal(t, amount, updated.AmountCents)
	assert.Equal(t, txn.Kind, updated.Kind)

	require.NoError(t, svc.Delete(ctx, txn.ID))
	_, err = svc.Get(ctx, txn.ID)
	assert.Equal(t, finance.ErrNotFound, err)

	_, err = svc.Update(ctx, txn.ID, finance.UpdateTransaction{})
	assert.Equal(t, finance.ErrNotFound, err)
}
