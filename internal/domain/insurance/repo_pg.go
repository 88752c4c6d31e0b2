package insurance

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

type policyRepoPG struct{ pool *pgxpool.Pool }

func NewPolicyRepoPG(pool *pgxpool.Pool) PolicyRepository { return &policyRepoPG{pool: pool} }

func (r *policyRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const policyCols = `id, user_email, provider, policy_number, coverage_amount, expiry_date, status, created_at, updated_at`

func (r *policyRepoPG) scanPolicy(row pgx.Row) (*Policy, error) {
	var p Policy
	err := row.Scan(&p.ID, &p.UserEmail, &p.Provider, &p.PolicyNumber, &p.CoverageAmount,
		&p.ExpiryDate, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *policyRepoPG) Create(ctx context.Context, p *Policy) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_policies (id, user_email, provider, policy_number, coverage_amount, expiry_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.UserEmail, p.Provider, p.PolicyNumber, p.CoverageAmount, p.ExpiryDate, p.Status)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrPolicyNumberTaken
	}
	return err
}

func (r *policyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return r.scanPolicy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+policyCols+` FROM insurance_policies WHERE id = $1`, id))
}

func (r *policyRepoPG) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return r.scanPolicy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+policyCols+` FROM insurance_policies WHERE id = $1 FOR UPDATE`, id))
}

func (r *policyRepoPG) ListByUser(ctx context.Context, userEmail string) ([]*Policy, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+policyCols+` FROM insurance_policies WHERE user_email = $1 ORDER BY created_at DESC`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []*Policy
	for rows.Next() {
		p, err := r.scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func (r *policyRepoPG) Update(ctx context.Context, p *Policy) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_policies
		SET coverage_amount = $2, status = $3, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.CoverageAmount, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPolicyNotFound
	}
	return nil
}
