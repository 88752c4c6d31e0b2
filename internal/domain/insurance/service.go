package insurance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPolicyNotFound       = errors.New("insurance policy not found")
	ErrPolicyNumberTaken    = errors.New("policy number is already registered")
	ErrInsufficientCoverage = errors.New("insufficient insurance coverage")
)

type Service struct {
	policies PolicyRepository
}

func NewService(policies PolicyRepository) *Service {
	return &Service{policies: policies}
}

// AddPolicy registers a policy for the given user. New policies always start
// ACTIVE.
func (s *Service) AddPolicy(ctx context.Context, p *Policy, userEmail string) error {
	if userEmail == "" {
		return fmt.Errorf("user email is required")
	}
	if p.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if p.PolicyNumber == "" {
		return fmt.Errorf("policy_number is required")
	}
	if p.CoverageAmount.IsNegative() {
		return fmt.Errorf("coverage_amount cannot be negative")
	}
	if p.ExpiryDate.IsZero() {
		return fmt.Errorf("expiry_date is required")
	}
	if p.ExpiryDate.Before(time.Now()) {
		return fmt.Errorf("expiry_date must be in the future")
	}

	p.UserEmail = userEmail
	p.Status = StatusActive
	return s.policies.Create(ctx, p)
}

func (s *Service) ListUserPolicies(ctx context.Context, userEmail string) ([]*Policy, error) {
	return s.policies.ListByUser(ctx, userEmail)
}

func (s *Service) GetPolicy(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return s.policies.GetByID(ctx, id)
}
