package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/testinsure/testinsure/internal/domain/catalog"
	"github.com/testinsure/testinsure/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Booking Repository ===========

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewBookingRepoPG(pool *pgxpool.Pool) BookingRepository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bookingCols = `id, user_email, test_id, slot_id, status, payment_status, created_at, updated_at`

func (r *bookingRepoPG) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.UserEmail, &b.TestID, &b.SlotID, &b.Status, &b.PaymentStatus,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO bookings (id, user_email, test_id, slot_id, status, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		b.ID, b.UserEmail, b.TestID, b.SlotID, b.Status, b.PaymentStatus)
	return err
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1`, id))
}

func (r *bookingRepoPG) Update(ctx context.Context, b *Booking) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bookings
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Status, b.PaymentStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *bookingRepoPG) ListByUser(ctx context.Context, userEmail string) ([]*Booking, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE user_email = $1 ORDER BY created_at DESC`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *bookingRepoPG) ListActive(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE status <> 'CANCELLED'`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM bookings WHERE status <> 'CANCELLED' ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings, err := r.collect(rows)
	return bookings, total, err
}

func (r *bookingRepoPG) collect(rows pgx.Rows) ([]*Booking, error) {
	var bookings []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepoPG) HasActiveByUserAndSlot(ctx context.Context, userEmail string, slotID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_email = $1 AND slot_id = $2 AND status <> 'CANCELLED'
		)`, userEmail, slotID).Scan(&exists)
	return exists, err
}

func (r *bookingRepoPG) CountActiveBySlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE slot_id = $1 AND status <> 'CANCELLED'`, slotID).Scan(&n)
	return n, err
}

func (r *bookingRepoPG) LockSlot(ctx context.Context, slotID uuid.UUID) error {
	var id uuid.UUID
	err := r.conn(ctx).QueryRow(ctx, `SELECT id FROM time_slots WHERE id = $1 FOR UPDATE`, slotID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrSlotNotFound
	}
	return err
}

// =========== Claim Repository ===========

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `id, booking_id, policy_id, status, approved_amount, remarks, raised_at, resolved_at`

func (r *claimRepoPG) scanClaim(row pgx.Row) (*Claim, error) {
	var cl Claim
	err := row.Scan(&cl.ID, &cl.BookingID, &cl.PolicyID, &cl.Status, &cl.ApprovedAmount,
		&cl.Remarks, &cl.RaisedAt, &cl.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrClaimNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

func (r *claimRepoPG) Create(ctx context.Context, cl *Claim) error {
	if cl.ID == uuid.Nil {
		cl.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_claims (id, booking_id, policy_id, status, approved_amount, remarks, raised_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		cl.ID, cl.BookingID, cl.PolicyID, cl.Status, cl.ApprovedAmount, cl.Remarks, cl.RaisedAt)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM insurance_claims WHERE id = $1`, id))
}

func (r *claimRepoPG) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*Claim, error) {
	return r.scanClaim(r.conn(ctx).QueryRow(ctx,
		`SELECT `+claimCols+` FROM insurance_claims WHERE booking_id = $1`, bookingID))
}

func (r *claimRepoPG) Update(ctx context.Context, cl *Claim) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_claims
		SET status = $2, approved_amount = $3, remarks = $4, resolved_at = $5
		WHERE id = $1`,
		cl.ID, cl.Status, cl.ApprovedAmount, cl.Remarks, cl.ResolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}

func (r *claimRepoPG) List(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM insurance_claims`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+claimCols+` FROM insurance_claims ORDER BY raised_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var claims []*Claim
	for rows.Next() {
		cl, err := r.scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		claims = append(claims, cl)
	}
	return claims, total, rows.Err()
}
