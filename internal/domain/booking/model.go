package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

const (
	PaymentPending          = "PENDING"
	PaymentPaid             = "PAID"
	PaymentInsurancePending = "INSURANCE_PENDING"
)

const (
	ClaimPending  = "PENDING"
	ClaimApproved = "APPROVED"
	ClaimRejected = "REJECTED"
)

// Booking maps to the bookings table. A booking is active while its status
// is anything but CANCELLED; active bookings hold a seat in their slot.
type Booking struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserEmail     string    `db:"user_email" json:"user_email"`
	TestID        uuid.UUID `db:"test_id" json:"test_id"`
	SlotID        uuid.UUID `db:"slot_id" json:"slot_id"`
	Status        string    `db:"status" json:"status"`
	PaymentStatus string    `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the booking still holds its slot seat.
func (b *Booking) Active() bool {
	return b.Status != StatusCancelled
}

// Claim maps to the insurance_claims table. Exactly one claim exists per
// insurance booking; cash bookings never get one.
type Claim struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	BookingID      uuid.UUID        `db:"booking_id" json:"booking_id"`
	PolicyID       uuid.UUID        `db:"policy_id" json:"policy_id"`
	Status         string           `db:"status" json:"status"`
	ApprovedAmount *decimal.Decimal `db:"approved_amount" json:"approved_amount,omitempty"`
	Remarks        string           `db:"remarks" json:"remarks"`
	RaisedAt       time.Time        `db:"raised_at" json:"raised_at"`
	ResolvedAt     *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
}
