package insurance

import (
	"context"

	"github.com/google/uuid"
)

type PolicyRepository interface {
	Create(ctx context.Context, p *Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	// GetByIDForUpdate locks the policy row for the duration of the
	// surrounding transaction, serializing concurrent balance mutations.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Policy, error)
	ListByUser(ctx context.Context, userEmail string) ([]*Policy, error)
	Update(ctx context.Context, p *Policy) error
}
