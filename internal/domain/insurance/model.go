package insurance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusActive  = "ACTIVE"
	StatusBlocked = "BLOCKED"
)

// Policy maps to the insurance_policies table. CoverageAmount is the live
// remaining balance; every insurance booking debits it and every refund
// credits it back.
type Policy struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserEmail      string          `db:"user_email" json:"user_email"`
	Provider       string          `db:"provider" json:"provider"`
	PolicyNumber   string          `db:"policy_number" json:"policy_number"`
	CoverageAmount decimal.Decimal `db:"coverage_amount" json:"coverage_amount"`
	ExpiryDate     time.Time       `db:"expiry_date" json:"expiry_date"`
	Status         string          `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Debit reserves amount from the remaining balance. The balance never goes
// negative; a debit that would overdraw fails with ErrInsufficientCoverage.
func (p *Policy) Debit(amount decimal.Decimal) error {
	if amount.GreaterThan(p.CoverageAmount) {
		return ErrInsufficientCoverage
	}
	p.CoverageAmount = p.CoverageAmount.Sub(amount)
	return nil
}

// Refund credits amount back to the remaining balance.
func (p *Policy) Refund(amount decimal.Decimal) {
	p.CoverageAmount = p.CoverageAmount.Add(amount)
}

// CanCover reports whether the balance is sufficient without mutating it.
func (p *Policy) CanCover(amount decimal.Decimal) bool {
	return !amount.GreaterThan(p.CoverageAmount)
}
