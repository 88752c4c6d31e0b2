package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrTestNotFound = errors.New("laboratory test not found")
	ErrSlotNotFound = errors.New("time slot not found")
)

type Service struct {
	tests LabTestRepository
	slots TimeSlotRepository
}

func NewService(tests LabTestRepository, slots TimeSlotRepository) *Service {
	return &Service{tests: tests, slots: slots}
}

// -- LabTest --

func (s *Service) CreateTest(ctx context.Context, t *LabTest) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Cost.IsNegative() {
		return fmt.Errorf("cost cannot be negative")
	}
	return s.tests.Create(ctx, t)
}

func (s *Service) GetTest(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return s.tests.GetByID(ctx, id)
}

func (s *Service) UpdateTest(ctx context.Context, t *LabTest) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.Cost.IsNegative() {
		return fmt.Errorf("cost cannot be negative")
	}
	return s.tests.Update(ctx, t)
}

func (s *Service) DeleteTest(ctx context.Context, id uuid.UUID) error {
	return s.tests.Delete(ctx, id)
}

func (s *Service) ListTests(ctx context.Context, limit, offset int) ([]*LabTest, int, error) {
	return s.tests.List(ctx, limit, offset)
}

// -- TimeSlot --

func (s *Service) CreateSlot(ctx context.Context, sl *TimeSlot) error {
	if sl.TestID == uuid.Nil {
		return fmt.Errorf("test_id is required")
	}
	if sl.StartTime.IsZero() || sl.EndTime.IsZero() {
		return fmt.Errorf("start_time and end_time are required")
	}
	if !sl.EndTime.After(sl.StartTime) {
		return fmt.Errorf("end_time must be after start_time")
	}
	if sl.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if _, err := s.tests.GetByID(ctx, sl.TestID); err != nil {
		return err
	}
	if err := s.slots.Create(ctx, sl); err != nil {
		return err
	}
	sl.Remaining = sl.Capacity
	return nil
}

// SlotsForTest lists the slots of a test with remaining capacity computed
// from live bookings. Remaining never goes below zero even if the stored
// capacity was lowered under existing bookings.
func (s *Service) SlotsForTest(ctx context.Context, testID uuid.UUID) ([]*TimeSlot, error) {
	if _, err := s.tests.GetByID(ctx, testID); err != nil {
		return nil, err
	}

	slots, err := s.slots.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	for _, sl := range slots {
		active, err := s.slots.CountActive(ctx, sl.ID)
		if err != nil {
			return nil, err
		}
		sl.Remaining = sl.Capacity - active
		if sl.Remaining < 0 {
			sl.Remaining = 0
		}
	}
	return slots, nil
}
