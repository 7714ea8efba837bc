package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RegisterStatus string

const (
	RegisterOpen   RegisterStatus = "open"
	RegisterClosed RegisterStatus = "closed"
)

// AutoCloseNote is written to ClosingNotes when the scheduler closes a register.
const AutoCloseNote = "automatic system closure"

// Register is one operator's cash-drawer session, from open to close.
// A partial unique index keeps at most one open register per operator.
type Register struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperatorID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// FinalBalance stays nil while the register is open
	FinalBalance *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status       RegisterStatus   `gorm:"type:varchar(10);not null;default:'open'"`
	OpenedAt     time.Time        `gorm:"not null"`
	ClosedAt     *time.Time
	ClosedByID   *uuid.UUID `gorm:"type:uuid"`
	ClosingNotes string     `gorm:"not null;default:''"`

	Operator        *User            `gorm:"foreignKey:OperatorID"`
	ClosedBy        *User            `gorm:"foreignKey:ClosedByID"`
	Sales           []Sale           `gorm:"foreignKey:RegisterID"`
	CashWithdrawals []CashWithdrawal `gorm:"foreignKey:RegisterID"`
}

func (r *Register) IsOpen() bool { return r.Status == RegisterOpen }

// CashWithdrawal is an immutable entry in a register's withdrawal ledger.
// Rows are only ever inserted.
type CashWithdrawal struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RegisterID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reason     string          `gorm:"not null"`
	CreatedAt  time.Time
}

// SaleTotals aggregates a register's completed sales.
type SaleTotals struct {
	Total    decimal.Decimal
	Count    int
	ByMethod map[PaymentMethod]decimal.Decimal
}

// SaleTotals sums the attached sales whose status is completed. Total covers
// every completed sale; ByMethod only carries the four known methods and
// ignores anything else.
func (r *Register) SaleTotals() SaleTotals {
	t := SaleTotals{
		Total:    decimal.Zero,
		ByMethod: make(map[PaymentMethod]decimal.Decimal, len(PaymentMethods)),
	}
	for _, m := range PaymentMethods {
		t.ByMethod[m] = decimal.Zero
	}
	for i := range r.Sales {
		sale := &r.Sales[i]
		if !sale.IsCompleted() {
			continue
		}
		t.Total = t.Total.Add(sale.Total)
		t.Count++

		switch sale.PaymentMethod {
		case PaymentCash, PaymentCredit, PaymentDebit, PaymentPix:
			t.ByMethod[sale.PaymentMethod] = t.ByMethod[sale.PaymentMethod].Add(sale.Total)
		default:
			// unknown method: counted in Total, not attributed to any method
		}
	}
	return t
}

// WithdrawalsTotal sums every withdrawal appended to the register.
func (r *Register) WithdrawalsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, w := range r.CashWithdrawals {
		total = total.Add(w.Amount)
	}
	return total
}
