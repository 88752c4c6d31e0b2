package reports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/testinsure/testinsure/internal/domain/booking"
	"github.com/testinsure/testinsure/internal/domain/identity"
	"github.com/testinsure/testinsure/internal/platform/blobstore"
	"github.com/testinsure/testinsure/internal/platform/db"
)

var (
	ErrReportNotFound = errors.New("report not found")
	ErrNotOwner       = errors.New("report belongs to another user")
)

// Service stores result documents for bookings. Uploading a report is what
// moves a booking to COMPLETED.
type Service struct {
	reports  ReportRepository
	bookings booking.BookingRepository
	blobs    blobstore.BlobStore
	tx       db.TxRunner
}

func NewService(reports ReportRepository, bookings booking.BookingRepository, blobs blobstore.BlobStore, tx db.TxRunner) *Service {
	return &Service{reports: reports, bookings: bookings, blobs: blobs, tx: tx}
}

// Upload stores the file and attaches it to the booking, marking the booking
// COMPLETED. The blob is written before the database transaction; an orphaned
// blob from a failed transaction is harmless.
func (s *Service) Upload(ctx context.Context, bookingID uuid.UUID, uploadedBy, fileName, contentType string, content io.Reader) (*Report, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		Category:    "lab-report",
		CreatedBy:   uploadedBy,
	}, content)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		BookingID:  b.ID,
		BlobID:     meta.ID,
		FileName:   fileName,
		UploadedBy: uploadedBy,
		UploadedAt: time.Now(),
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reports.Upsert(ctx, rep); err != nil {
			return err
		}
		b.Status = booking.StatusCompleted
		return s.bookings.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// Download streams the report for a booking. Patients may only fetch their
// own; admins may fetch any. The returned content type is the one recorded
// at upload, or application/octet-stream when none was.
func (s *Service) Download(ctx context.Context, bookingID uuid.UUID, requesterEmail, requesterRole string) (io.ReadCloser, *Report, string, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, "", err
	}
	if requesterRole != identity.RoleAdmin && b.UserEmail != requesterEmail {
		return nil, nil, "", ErrNotOwner
	}

	rep, err := s.reports.GetByBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, "", err
	}

	rc, meta, err := s.blobs.Download(ctx, rep.BlobID)
	if err != nil {
		return nil, nil, "", err
	}
	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, rep, contentType, nil
}
