package reports

import (
	"context"

	"github.com/google/uuid"
)

type ReportRepository interface {
	// Upsert inserts the report or replaces the existing one for the same
	// booking.
	Upsert(ctx context.Context, r *Report) error
	GetByBooking(ctx context.Context, bookingID uuid.UUID) (*Report, error)
}
