package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilters narrows the billed/pending list views. Zero values mean "no
// filter". Search matches patient name, UHID and phone.
type ListFilters struct {
	From          *time.Time
	To            *time.Time
	PaymentMethod string
	Service       string
	Search        string
}

// Repository is the persistence contract for the bill ledger. Lookups return
// pgx.ErrNoRows for missing or soft-deleted bills; the service translates.
type Repository interface {
	// Create inserts the bill and its line items atomically. The partial
	// unique index on appointment_id is the authoritative duplicate guard;
	// a violation surfaces as a pgconn.PgError.
	Create(ctx context.Context, b *Bill) error

	Get(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error)

	// Update loads the bill and its items under a row lock, applies fn and
	// rewrites the row and line items in the same transaction. An error from
	// fn aborts without writing. Validation against current state must happen
	// inside fn; anything read before the lock is stale.
	Update(ctx context.Context, id uuid.UUID, fn func(*Bill) error) (*Bill, error)

	// UpdatePayment applies fn under the same row lock but persists only
	// amount_paid and payment_status.
	UpdatePayment(ctx context.Context, id uuid.UUID, fn func(*Bill) error) (*Bill, error)

	SoftDelete(ctx context.Context, id uuid.UUID) error

	ListBilled(ctx context.Context, f ListFilters, limit, offset int) ([]*Bill, int, error)
	ListPending(ctx context.Context, f ListFilters, limit, offset int) ([]*Bill, int, error)

	// Summary fills every counter except UnbilledCount, which belongs to
	// the appointment directory.
	Summary(ctx context.Context, from, to *time.Time) (*Summary, error)
}
