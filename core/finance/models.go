package finance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/secmun/podium/core"
)

// Transaction kinds
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Transaction is a single ledger line. Amounts are integer cents; floats
// never enter the books.
type Transaction struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	OccurredOn  time.Time `json:"occurred_on"`
	RecordedBy  string    `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Summary totals a period's ledger. Balance may be negative.
type Summary struct {
	IncomeCents  int64 `json:"income_cents"`
	ExpenseCents int64 `json:"expense_cents"`
	BalanceCents int64 `json:"balance_cents"`
}

// Payloads

type NewTransaction struct {
	Kind        string    `json:"kind" validate:"required,oneof=income expense"`
	AmountCents int64     `json:"amount_cents" validate:"required,gt=0"`
	Category    string    `json:"category" validate:"required"`
	Description string    `json:"description"`
	OccurredOn  time.Time `json:"occurred_on" validate:"required"`
}

func (nt *NewTransaction) Validate(validate *validator.Validate) error {
	nt.Kind = core.CleanString(nt.Kind, true /* lower */)
	nt.Category = core.CleanString(nt.Category, true /* lower */)
	nt.Description = core.CleanString(nt.Description)
	return validate.Struct(nt)
}

type UpdateTransaction struct {
	Kind        string     `json:"kind" validate:"omitempty,oneof=income expense"`
	AmountCents *int64     `json:"amount_cents" validate:"omitempty,gt=0"`
	Category    string     `json:"category"`
	Description *string    `json:"description"`
	OccurredOn  *time.Time `json:"occurred_on"`
}

func (ut *UpdateTransaction) Validate(validate *validator.Validate) error {
	ut.Kind = core.CleanString(ut.Kind, true /* lower */)
	ut.Category = core.CleanString(ut.Category, true /* lower */)
	return validate.Struct(ut)
}

// QueryFilter narrows ledger queries. Empty fields are skipped.
type QueryFilter struct {
	Kind     string
	Category string
	From     time.Time
	To       time.Time
}

func (f QueryFilter) IsEmpty() bool {
	return f.Kind == "" && f.Category == "" && f.From.IsZero() && f.To.IsZero()
}

func (f *QueryFilter) Clean() {
	f.Kind = core.CleanString(f.Kind, true)
	f.Category = core.CleanString(f.Category, true)
}
