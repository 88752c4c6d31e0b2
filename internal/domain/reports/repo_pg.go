package reports

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

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository { return &reportRepoPG{pool: pool} }

func (r *reportRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *reportRepoPG) Upsert(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reports (id, booking_id, blob_id, file_name, uploaded_by, uploaded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (booking_id) DO UPDATE
		SET blob_id = EXCLUDED.blob_id,
		    file_name = EXCLUDED.file_name,
		    uploaded_by = EXCLUDED.uploaded_by,
		    uploaded_at = EXCLUDED.uploaded_at`,
		rep.ID, rep.BookingID, rep.BlobID, rep.FileName, rep.UploadedBy, rep.UploadedAt)
	return err
}

func (r *reportRepoPG) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*Report, error) {
	var rep Report
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, booking_id, blob_id, file_name, uploaded_by, uploaded_at
		FROM reports WHERE booking_id = $1`, bookingID).
		Scan(&rep.ID, &rep.BookingID, &rep.BlobID, &rep.FileName, &rep.UploadedBy, &rep.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
