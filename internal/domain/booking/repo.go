package booking

import (
	"context"

	"github.com/google/uuid"
)

type BookingRepository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	Update(ctx context.Context, b *Booking) error
	ListByUser(ctx context.Context, userEmail string) ([]*Booking, error)
	// ListActive returns bookings whose status is not CANCELLED.
	ListActive(ctx context.Context, limit, offset int) ([]*Booking, int, error)
	// HasActiveByUserAndSlot reports whether the user already holds a
	// non-cancelled booking for the slot.
	HasActiveByUserAndSlot(ctx context.Context, userEmail string, slotID uuid.UUID) (bool, error)
	CountActiveBySlot(ctx context.Context, slotID uuid.UUID) (int, error)
	// LockSlot takes a row lock on the slot for the duration of the
	// surrounding transaction, serializing concurrent admission checks.
	LockSlot(ctx context.Context, slotID uuid.UUID) error
}

type ClaimRepository interface {
	Create(ctx context.Context, cl *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	GetByBooking(ctx context.Context, bookingID uuid.UUID) (*Claim, error)
	Update(ctx context.Context, cl *Claim) error
	List(ctx context.Context, limit, offset int) ([]*Claim, int, error)
}
