package directory

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the narrow read-only contract the billing core requires from
// the patient/appointment directory.
type Repository interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*PatientRecord, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error)

	// ListCompletedWithoutBill returns completed appointments that have no
	// non-deleted bill, newest first.
	ListCompletedWithoutBill(ctx context.Context, limit, offset int) ([]*UnbilledAppointment, int, error)

	// CountCompletedWithoutBill returns the unbilled count for the summary,
	// optionally restricted to a date range on the appointment start.
	CountCompletedWithoutBill(ctx context.Context) (int, error)
}
