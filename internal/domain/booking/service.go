package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/testinsure/testinsure/internal/domain/catalog"
	"github.com/testinsure/testinsure/internal/domain/identity"
	"github.com/testinsure/testinsure/internal/domain/insurance"
	"github.com/testinsure/testinsure/internal/platform/db"
	"github.com/testinsure/testinsure/internal/platform/receipt"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrClaimNotFound   = errors.New("claim not found")
	ErrAlreadyBooked   = errors.New("slot already booked by this user")
	ErrSlotFull        = errors.New("slot full")
	ErrPolicyRequired  = errors.New("policy_id is required for insurance bookings")
	ErrAlreadyPaid     = errors.New("booking is already paid")
	ErrNotOwner        = errors.New("booking belongs to another user")
)

// defaultRejectRemark is applied when an admin rejects a claim without a
// reason.
const defaultRejectRemark = "Claim Rejected by Admin"

// blockTrigger is the substring of a rejection reason that additionally
// blocks the policy. Matched case-insensitively.
const blockTrigger = "invalid insurance"

// Service orchestrates the booking lifecycle and claim adjudication. Every
// mutation that touches more than one row runs inside a single transaction,
// with row locks on the slot and the policy serializing concurrent admission
// and balance checks.
type Service struct {
	bookings BookingRepository
	claims   ClaimRepository
	users    identity.UserRepository
	tests    catalog.LabTestRepository
	slots    catalog.TimeSlotRepository
	policies insurance.PolicyRepository
	tx       db.TxRunner
}

func NewService(
	bookings BookingRepository,
	claims ClaimRepository,
	users identity.UserRepository,
	tests catalog.LabTestRepository,
	slots catalog.TimeSlotRepository,
	policies insurance.PolicyRepository,
	tx db.TxRunner,
) *Service {
	return &Service{
		bookings: bookings,
		claims:   claims,
		users:    users,
		tests:    tests,
		slots:    slots,
		policies: policies,
		tx:       tx,
	}
}

// CreateBooking admits the user into the slot and, for insurance bookings,
// reserves the test cost against the policy balance immediately. The debit
// happens at booking time, not at claim approval, so concurrent bookings
// cannot oversubscribe a policy.
func (s *Service) CreateBooking(ctx context.Context, userEmail string, testID, slotID uuid.UUID, useInsurance bool, policyID *uuid.UUID) (*Booking, error) {
	if _, err := s.users.GetByEmail(ctx, userEmail); err != nil {
		return nil, err
	}
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.TestID != test.ID {
		return nil, fmt.Errorf("slot does not belong to the requested test")
	}
	if useInsurance && policyID == nil {
		return nil, ErrPolicyRequired
	}

	b := &Booking{
		UserEmail:     userEmail,
		TestID:        test.ID,
		SlotID:        slot.ID,
		Status:        StatusConfirmed,
		PaymentStatus: PaymentPaid,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.LockSlot(ctx, slot.ID); err != nil {
			return err
		}

		taken, err := s.bookings.HasActiveByUserAndSlot(ctx, userEmail, slot.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrAlreadyBooked
		}

		active, err := s.bookings.CountActiveBySlot(ctx, slot.ID)
		if err != nil {
			return err
		}
		if active >= slot.Capacity {
			return ErrSlotFull
		}

		if !useInsurance {
			// Cash is settled at booking time; no payment step follows.
			return s.bookings.Create(ctx, b)
		}

		policy, err := s.policies.GetByIDForUpdate(ctx, *policyID)
		if err != nil {
			return err
		}
		if err := policy.Debit(test.Cost); err != nil {
			return fmt.Errorf("%w: remaining balance %s is less than test cost %s",
				insurance.ErrInsufficientCoverage,
				policy.CoverageAmount.StringFixed(2), test.Cost.StringFixed(2))
		}
		if err := s.policies.Update(ctx, policy); err != nil {
			return err
		}

		b.PaymentStatus = PaymentInsurancePending
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}

		return s.claims.Create(ctx, &Claim{
			BookingID: b.ID,
			PolicyID:  policy.ID,
			Status:    ClaimPending,
			Remarks:   "Auto-generated claim",
			RaisedAt:  time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CancelBooking cancels the requester's own booking, freeing the slot seat.
// If a claim exists the reserved amount is refunded to the policy and the
// claim is closed as REJECTED; cash bookings are not reversible.
func (s *Service) CancelBooking(ctx context.Context, bookingID uuid.UUID, requesterEmail string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserEmail != requesterEmail {
			return ErrNotOwner
		}

		wasPaid := b.PaymentStatus == PaymentPaid || b.PaymentStatus == PaymentInsurancePending
		b.Status = StatusCancelled
		if err := s.bookings.Update(ctx, b); err != nil {
			return err
		}
		if !wasPaid {
			return nil
		}

		cl, err := s.claims.GetByBooking(ctx, b.ID)
		if errors.Is(err, ErrClaimNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		test, err := s.tests.GetByID(ctx, b.TestID)
		if err != nil {
			return err
		}
		policy, err := s.policies.GetByIDForUpdate(ctx, cl.PolicyID)
		if err != nil {
			return err
		}
		policy.Refund(test.Cost)
		if err := s.policies.Update(ctx, policy); err != nil {
			return err
		}

		cl.Status = ClaimRejected
		return s.claims.Update(ctx, cl)
	})
}

// ProcessPayment marks a booking PAID. Does not touch any policy balance.
func (s *Service) ProcessPayment(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	b.PaymentStatus = PaymentPaid
	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetUserBookings(ctx context.Context, userEmail string) ([]*Booking, error) {
	return s.bookings.ListByUser(ctx, userEmail)
}

// GetAllBookings lists every non-cancelled booking.
func (s *Service) GetAllBookings(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	return s.bookings.ListActive(ctx, limit, offset)
}

// -- Claim adjudication --

func (s *Service) GetAllClaims(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	return s.claims.List(ctx, limit, offset)
}

// ApproveClaim confirms the reservation made at booking time. The balance is
// not debited again; sufficiency is re-checked as a guard against
// reservation-accounting bugs.
func (s *Service) ApproveClaim(ctx context.Context, claimID uuid.UUID) (*Claim, error) {
	var cl *Claim
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cl, err = s.claims.GetByID(ctx, claimID)
		if err != nil {
			return err
		}

		b, err := s.bookings.GetByID(ctx, cl.BookingID)
		if err != nil {
			return err
		}
		test, err := s.tests.GetByID(ctx, b.TestID)
		if err != nil {
			return err
		}
		policy, err := s.policies.GetByIDForUpdate(ctx, cl.PolicyID)
		if err != nil {
			return err
		}
		if !policy.CanCover(test.Cost) {
			return fmt.Errorf("%w: remaining balance %s is less than claimed amount %s",
				insurance.ErrInsufficientCoverage,
				policy.CoverageAmount.StringFixed(2), test.Cost.StringFixed(2))
		}

		now := time.Now()
		amount := test.Cost
		cl.Status = ClaimApproved
		cl.ApprovedAmount = &amount
		cl.ResolvedAt = &now
		if err := s.claims.Update(ctx, cl); err != nil {
			return err
		}

		b.PaymentStatus = PaymentPaid
		return s.bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// RejectClaim releases the reservation: the test cost is refunded to the
// policy and the booking is cancelled. A reason containing "invalid
// insurance" (any case) additionally blocks the policy.
func (s *Service) RejectClaim(ctx context.Context, claimID uuid.UUID, reason string) (*Claim, error) {
	if strings.TrimSpace(reason) == "" {
		reason = defaultRejectRemark
	}

	var cl *Claim
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		cl, err = s.claims.GetByID(ctx, claimID)
		if err != nil {
			return err
		}

		b, err := s.bookings.GetByID(ctx, cl.BookingID)
		if err != nil {
			return err
		}
		test, err := s.tests.GetByID(ctx, b.TestID)
		if err != nil {
			return err
		}
		policy, err := s.policies.GetByIDForUpdate(ctx, cl.PolicyID)
		if err != nil {
			return err
		}

		policy.Refund(test.Cost)
		if strings.Contains(strings.ToLower(reason), blockTrigger) {
			policy.Status = insurance.StatusBlocked
		}
		if err := s.policies.Update(ctx, policy); err != nil {
			return err
		}

		now := time.Now()
		cl.Status = ClaimRejected
		cl.Remarks = reason
		cl.ResolvedAt = &now
		if err := s.claims.Update(ctx, cl); err != nil {
			return err
		}

		b.PaymentStatus = PaymentPending
		b.Status = StatusCancelled
		return s.bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return cl, nil
}

// Bill assembles the receipt data for a booking. Only the owner may request
// it.
func (s *Service) Bill(ctx context.Context, bookingID uuid.UUID, requesterEmail string) (*receipt.Bill, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserEmail != requesterEmail {
		return nil, ErrNotOwner
	}

	test, err := s.tests.GetByID(ctx, b.TestID)
	if err != nil {
		return nil, err
	}
	slot, err := s.slots.GetByID(ctx, b.SlotID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByEmail(ctx, b.UserEmail)
	if err != nil {
		return nil, err
	}

	method := "CASH"
	if _, err := s.claims.GetByBooking(ctx, b.ID); err == nil {
		method = "INSURANCE"
	} else if !errors.Is(err, ErrClaimNotFound) {
		return nil, err
	}

	return &receipt.Bill{
		BookingID:     b.ID.String(),
		PatientName:   user.Name,
		PatientEmail:  user.Email,
		TestName:      test.Name,
		SlotStart:     slot.StartTime,
		SlotEnd:       slot.EndTime,
		Amount:        test.Cost,
		PaymentMethod: method,
		PaymentStatus: b.PaymentStatus,
		BookingStatus: b.Status,
		IssuedAt:      time.Now(),
	}, nil
}
