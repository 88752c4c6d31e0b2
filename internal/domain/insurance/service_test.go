package insurance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -- Mock Repository --

type mockPolicyRepo struct {
	policies map[uuid.UUID]*Policy
}

func newMockPolicyRepo() *mockPolicyRepo {
	return &mockPolicyRepo{policies: make(map[uuid.UUID]*Policy)}
}

func (m *mockPolicyRepo) Create(_ context.Context, p *Policy) error {
	for _, existing := range m.policies {
		if existing.PolicyNumber == p.PolicyNumber {
			return ErrPolicyNumberTaken
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.policies[p.ID] = p
	return nil
}

func (m *mockPolicyRepo) GetByID(_ context.Context, id uuid.UUID) (*Policy, error) {
	p, ok := m.policies[id]
	if !ok {
		return nil, ErrPolicyNotFound
	}
	return p, nil
}

func (m *mockPolicyRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Policy, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPolicyRepo) ListByUser(_ context.Context, userEmail string) ([]*Policy, error) {
	var result []*Policy
	for _, p := range m.policies {
		if p.UserEmail == userEmail {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockPolicyRepo) Update(_ context.Context, p *Policy) error {
	if _, ok := m.policies[p.ID]; !ok {
		return ErrPolicyNotFound
	}
	m.policies[p.ID] = p
	return nil
}

func validPolicy() *Policy {
	return &Policy{
		Provider:       "Acme Health",
		PolicyNumber:   "ACME-1001",
		CoverageAmount: decimal.NewFromInt(5000),
		ExpiryDate:     time.Now().Add(365 * 24 * time.Hour),
	}
}

// -- Tests --

func TestAddPolicy_DefaultsToActive(t *testing.T) {
	svc := NewService(newMockPolicyRepo())

	p := validPolicy()
	p.Status = "BLOCKED" // callers cannot pick a status
	if err := svc.AddPolicy(context.Background(), p, "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusActive {
		t.Errorf("expected status ACTIVE, got %s", p.Status)
	}
	if p.UserEmail != "alice@example.com" {
		t.Errorf("expected policy bound to caller, got %s", p.UserEmail)
	}
}

func TestAddPolicy_RejectsNegativeCoverage(t *testing.T) {
	svc := NewService(newMockPolicyRepo())

	p := validPolicy()
	p.CoverageAmount = decimal.NewFromInt(-100)
	if err := svc.AddPolicy(context.Background(), p, "alice@example.com"); err == nil {
		t.Error("expected error for negative coverage")
	}
}

func TestAddPolicy_RejectsPastExpiry(t *testing.T) {
	svc := NewService(newMockPolicyRepo())

	p := validPolicy()
	p.ExpiryDate = time.Now().Add(-24 * time.Hour)
	if err := svc.AddPolicy(context.Background(), p, "alice@example.com"); err == nil {
		t.Error("expected error for expired policy")
	}
}

func TestAddPolicy_DuplicateNumber(t *testing.T) {
	svc := NewService(newMockPolicyRepo())

	if err := svc.AddPolicy(context.Background(), validPolicy(), "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := svc.AddPolicy(context.Background(), validPolicy(), "bob@example.com")
	if err != ErrPolicyNumberTaken {
		t.Errorf("expected ErrPolicyNumberTaken, got %v", err)
	}
}

func TestListUserPolicies_OnlyOwn(t *testing.T) {
	svc := NewService(newMockPolicyRepo())

	if err := svc.AddPolicy(context.Background(), validPolicy(), "alice@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := validPolicy()
	other.PolicyNumber = "ACME-1002"
	if err := svc.AddPolicy(context.Background(), other, "bob@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	policies, err := svc.ListUserPolicies(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(policies) != 1 {
		t.Fatalf("expected 1 policy, got %d", len(policies))
	}
	if policies[0].UserEmail != "alice@example.com" {
		t.Errorf("expected alice's policy, got %s", policies[0].UserEmail)
	}
}

func TestDebit_InsufficientCoverage(t *testing.T) {
	p := &Policy{CoverageAmount: decimal.NewFromInt(100)}

	if err := p.Debit(decimal.NewFromInt(150)); err != ErrInsufficientCoverage {
		t.Errorf("expected ErrInsufficientCoverage, got %v", err)
	}
	if !p.CoverageAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected balance untouched on failed debit, got %s", p.CoverageAmount)
	}
}

func TestDebit_ExactBalanceAllowed(t *testing.T) {
	p := &Policy{CoverageAmount: decimal.NewFromInt(100)}

	if err := p.Debit(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.CoverageAmount.IsZero() {
		t.Errorf("expected zero balance, got %s", p.CoverageAmount)
	}
}

func TestRefund_RestoresBalance(t *testing.T) {
	p := &Policy{CoverageAmount: decimal.NewFromInt(100)}

	if err := p.Debit(decimal.NewFromInt(40)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Refund(decimal.NewFromInt(40))
	if !p.CoverageAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected balance restored to 100, got %s", p.CoverageAmount)
	}
}
