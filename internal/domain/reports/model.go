package reports

import (
	"time"

	"github.com/google/uuid"
)

// Report links a booking to its uploaded lab-report file in the blob store.
// At most one report exists per booking; re-uploading replaces it.
type Report struct {
	ID         uuid.UUID `db:"id" json:"id"`
	BookingID  uuid.UUID `db:"booking_id" json:"booking_id"`
	BlobID     string    `db:"blob_id" json:"blob_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}
