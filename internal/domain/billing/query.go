package billing

import (
	"context"
	"time"

	"github.com/clinicore/clinicd/internal/domain/directory"
)

// QueryService is the read side: the billed/pending/unbilled tabs and the
// summary counters. Everything is computed fresh from ledger state on each
// call; nothing is cached.
type QueryService struct {
	bills Repository
	dir   directory.Repository
}

func NewQueryService(bills Repository, dir directory.Repository) *QueryService {
	return &QueryService{bills: bills, dir: dir}
}

// ListBilled returns bills with at least one payment recorded
// (payment_status ≠ pending), matching the filters.
func (q *QueryService) ListBilled(ctx context.Context, f ListFilters, limit, offset int) ([]*Bill, int, error) {
	bills, total, err := q.bills.ListBilled(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, &StorageError{Op: "list billed", Err: err}
	}
	return bills, total, nil
}

// ListPending returns bills awaiting their first payment.
func (q *QueryService) ListPending(ctx context.Context, f ListFilters, limit, offset int) ([]*Bill, int, error) {
	bills, total, err := q.bills.ListPending(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, &StorageError{Op: "list pending", Err: err}
	}
	return bills, total, nil
}

// ListUnbilled projects completed appointments without a live bill into
// UnbilledVisit rows.
func (q *QueryService) ListUnbilled(ctx context.Context, limit, offset int) ([]*UnbilledVisit, int, error) {
	appts, total, err := q.dir.ListCompletedWithoutBill(ctx, limit, offset)
	if err != nil {
		return nil, 0, &StorageError{Op: "list unbilled", Err: err}
	}
	visits := make([]*UnbilledVisit, 0, len(appts))
	for _, a := range appts {
		visits = append(visits, &UnbilledVisit{
			SourceID:        a.ID,
			SourceType:      SourceAppointment,
			PatientID:       a.PatientID,
			PatientName:     a.PatientName,
			UHID:            a.PatientUHID,
			Phone:           a.PatientPhone,
			DoctorID:        a.DoctorID,
			ConsultationFee: a.ConsultationFee,
			AppointmentDate: a.StartsAt,
		})
	}
	return visits, total, nil
}

// Summary returns the dashboard counters for the date range. paidTotal sums
// amount_paid over paid bills; counts ignore pagination entirely.
func (q *QueryService) Summary(ctx context.Context, from, to *time.Time) (*Summary, error) {
	s, err := q.bills.Summary(ctx, from, to)
	if err != nil {
		return nil, &StorageError{Op: "summary", Err: err}
	}
	unbilled, err := q.dir.CountCompletedWithoutBill(ctx)
	if err != nil {
		return nil, &StorageError{Op: "summary unbilled count", Err: err}
	}
	s.UnbilledCount = unbilled
	return s, nil
}
