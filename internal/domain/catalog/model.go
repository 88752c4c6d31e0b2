package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LabTest maps to the laboratory_tests table.
type LabTest struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Cost        decimal.Decimal `db:"cost" json:"cost"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// TimeSlot maps to the time_slots table. Remaining is never persisted; it is
// recomputed from live bookings on every read.
type TimeSlot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TestID    uuid.UUID `db:"test_id" json:"test_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Remaining int `db:"-" json:"remaining"`
}
