package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/testinsure/testinsure/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== LabTest Repository ===========

type labTestRepoPG struct{ pool *pgxpool.Pool }

func NewLabTestRepoPG(pool *pgxpool.Pool) LabTestRepository { return &labTestRepoPG{pool: pool} }

func (r *labTestRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const testCols = `id, name, description, cost, created_at, updated_at`

func (r *labTestRepoPG) scanTest(row pgx.Row) (*LabTest, error) {
	var t LabTest
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Cost, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *labTestRepoPG) Create(ctx context.Context, t *LabTest) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO laboratory_tests (id, name, description, cost)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.Name, t.Description, t.Cost)
	return err
}

func (r *labTestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return r.scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM laboratory_tests WHERE id = $1`, id))
}

func (r *labTestRepoPG) Update(ctx context.Context, t *LabTest) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE laboratory_tests
		SET name = $2, description = $3, cost = $4, updated_at = NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Description, t.Cost)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}
	return nil
}

func (r *labTestRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM laboratory_tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTestNotFound
	}
	return nil
}

func (r *labTestRepoPG) List(ctx context.Context, limit, offset int) ([]*LabTest, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM laboratory_tests`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+testCols+` FROM laboratory_tests ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []*LabTest
	for rows.Next() {
		t, err := r.scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, t)
	}
	return tests, total, rows.Err()
}

// =========== TimeSlot Repository ===========

type timeSlotRepoPG struct{ pool *pgxpool.Pool }

func NewTimeSlotRepoPG(pool *pgxpool.Pool) TimeSlotRepository { return &timeSlotRepoPG{pool: pool} }

func (r *timeSlotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const slotCols = `id, test_id, start_time, end_time, capacity, created_at`

func (r *timeSlotRepoPG) scanSlot(row pgx.Row) (*TimeSlot, error) {
	var sl TimeSlot
	err := row.Scan(&sl.ID, &sl.TestID, &sl.StartTime, &sl.EndTime, &sl.Capacity, &sl.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (r *timeSlotRepoPG) Create(ctx context.Context, sl *TimeSlot) error {
	if sl.ID == uuid.Nil {
		sl.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO time_slots (id, test_id, start_time, end_time, capacity)
		VALUES ($1,$2,$3,$4,$5)`,
		sl.ID, sl.TestID, sl.StartTime, sl.EndTime, sl.Capacity)
	return err
}

func (r *timeSlotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	return r.scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM time_slots WHERE id = $1`, id))
}

func (r *timeSlotRepoPG) ListByTest(ctx context.Context, testID uuid.UUID) ([]*TimeSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+slotCols+` FROM time_slots WHERE test_id = $1 ORDER BY start_time`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*TimeSlot
	for rows.Next() {
		sl, err := r.scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}

func (r *timeSlotRepoPG) CountActive(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status <> 'CANCELLED'`, slotID).Scan(&n)
	return n, err
}
