package catalog

import (
	"context"

	"github.com/google/uuid"
)

type LabTestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	Update(ctx context.Context, t *LabTest) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*LabTest, int, error)
}

type TimeSlotRepository interface {
	Create(ctx context.Context, sl *TimeSlot) error
	GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListByTest(ctx context.Context, testID uuid.UUID) ([]*TimeSlot, error)
	// CountActive returns the number of bookings against the slot whose
	// status is anything but CANCELLED.
	CountActive(ctx context.Context, slotID uuid.UUID) (int, error)
}
