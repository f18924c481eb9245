package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicore/clinicd/internal/domain/directory"
	"github.com/clinicore/clinicd/internal/money"
)

// Service is the bill ledger: it owns bill entities, enforces the
// one-bill-per-appointment invariant and drives the payment-status state
// machine.
type Service struct {
	bills Repository
	dir   directory.Repository
}

func NewService(bills Repository, dir directory.Repository) *Service {
	return &Service{bills: bills, dir: dir}
}

// translate maps storage errors to domain errors at the service boundary.
// Raw pgx errors never leak past here. Domain errors raised inside a
// repository mutation callback pass through untouched.
func translate(op string, err error, notFound *NotFoundError) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	var ve *ValidationError
	var ce *ConflictError
	if errors.As(err, &ve) || errors.As(err, &ce) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Create validates and persists a bill draft. The repository's unique index
// on appointment_id is the authoritative duplicate guard; the pre-check here
// is a fast path so the common retry returns the existing bill without
// burning an insert.
func (s *Service) Create(ctx context.Context, draft *Bill) (*Bill, error) {
	if draft.PatientID == uuid.Nil {
		return nil, &ValidationError{Field: "patient_id", Reason: "is required"}
	}
	if len(draft.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "at least one line item is required"}
	}
	if err := recalculate(draft); err != nil {
		return nil, err
	}
	if draft.AmountPaid.IsNegative() {
		return nil, &ValidationError{Field: "amount_paid", Reason: "must not be negative"}
	}
	if draft.AmountPaid > draft.TotalAmount {
		return nil, &ValidationError{Field: "amount_paid", Reason: "must not exceed the bill total"}
	}
	draft.PaymentStatus = derivePaymentStatus(draft.AmountPaid, draft.TotalAmount)

	if draft.AppointmentID != nil {
		if existing, err := s.bills.GetByAppointment(ctx, *draft.AppointmentID); err == nil {
			return nil, &DuplicateBillError{ExistingID: existing.ID}
		}
	}

	if err := s.bills.Create(ctx, draft); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && draft.AppointmentID != nil {
			// Lost the race: another create committed first. Re-fetch and
			// hand back the winner.
			if existing, gerr := s.bills.GetByAppointment(ctx, *draft.AppointmentID); gerr == nil {
				return nil, &DuplicateBillError{ExistingID: existing.ID}
			}
		}
		return nil, &StorageError{Op: "create bill", Err: err}
	}
	return draft, nil
}

// CreateFromVisit looks up the appointment, builds a draft via
// DraftFromVisit and creates it. The default consultation line applies when
// items is empty.
func (s *Service) CreateFromVisit(ctx context.Context, appointmentID uuid.UUID, items []ServiceLineItem, opts DraftOptions) (*Bill, error) {
	appt, err := s.dir.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, translate("get appointment", err, &NotFoundError{Resource: "appointment", ID: appointmentID})
	}
	visit := UnbilledVisit{
		SourceID:        appt.ID,
		SourceType:      SourceAppointment,
		PatientID:       appt.PatientID,
		DoctorID:        appt.DoctorID,
		ConsultationFee: appt.ConsultationFee,
		AppointmentDate: appt.StartsAt,
	}
	draft, err := DraftFromVisit(visit, items, opts)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, draft)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := s.bills.Get(ctx, id)
	if err != nil {
		return nil, translate("get bill", err, &NotFoundError{Resource: "bill", ID: id})
	}
	return b, nil
}

// UpdateRequest carries the editable fields of a bill. Nil means "leave
// unchanged"; items, when present, replace the existing line items wholesale.
type UpdateRequest struct {
	Items           []ServiceLineItem
	TaxPercent      *float64
	OverallDiscount *money.Amount
	PaymentMethod   *string
	Notes           *string
	TemplateID      *uuid.UUID
	AmountPaid      *money.Amount
}

// Update applies a patch, recomputes totals and rederives payment status.
// Shrinking the total below the already-paid amount is rejected unless the
// caller supplies a corrective amount_paid in the same request. The whole
// read-validate-write runs under the bill's row lock.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Bill, error) {
	b, err := s.bills.Update(ctx, id, func(b *Bill) error {
		if req.Items != nil {
			b.Items = req.Items
		}
		if req.TaxPercent != nil {
			b.TaxPercent = *req.TaxPercent
		}
		if req.OverallDiscount != nil {
			b.OverallDiscount = *req.OverallDiscount
		}
		if req.PaymentMethod != nil {
			b.PaymentMethod = *req.PaymentMethod
		}
		if req.Notes != nil {
			b.Notes = *req.Notes
		}
		if req.TemplateID != nil {
			b.TemplateID = req.TemplateID
		}
		if err := recalculate(b); err != nil {
			return err
		}

		if req.AmountPaid != nil {
			if req.AmountPaid.IsNegative() {
				return &ValidationError{Field: "amount_paid", Reason: "must not be negative"}
			}
			if *req.AmountPaid > b.TotalAmount {
				return &ValidationError{Field: "amount_paid", Reason: "must not exceed the bill total"}
			}
			b.AmountPaid = *req.AmountPaid
		} else if b.TotalAmount < b.AmountPaid {
			return &ValidationError{
				Field:  "total_amount",
				Reason: "cannot drop below the amount already paid; supply a corrective amount_paid",
			}
		}
		b.PaymentStatus = derivePaymentStatus(b.AmountPaid, b.TotalAmount)
		return nil
	})
	if err != nil {
		return nil, translate("update bill", err, &NotFoundError{Resource: "bill", ID: id})
	}
	return b, nil
}

// Delete soft-deletes a bill. Pending bills delete unconditionally;
// partially or fully paid bills require the administrative force flag.
// Deleting frees the appointment for rebilling.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.PaymentStatus != StatusPending && !force {
		return &ConflictError{Reason: "bill has recorded payments; deletion requires the force flag"}
	}
	if err := s.bills.SoftDelete(ctx, id); err != nil {
		return translate("delete bill", err, &NotFoundError{Resource: "bill", ID: id})
	}
	return nil
}

// RecordPayment applies a payment to the bill. Overpayment is a hard cap:
// a payment that would push amount_paid past the total is rejected outright,
// never partially accepted. The cap is checked against the row-locked state,
// so two concurrent payments cannot both pass it on a stale read.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, amount money.Amount) (*Bill, error) {
	if amount <= 0 {
		return nil, &ValidationError{Field: "payment_amount", Reason: "must be positive"}
	}
	b, err := s.bills.UpdatePayment(ctx, id, func(b *Bill) error {
		newPaid := b.AmountPaid.Add(amount)
		if newPaid > b.TotalAmount {
			return &ValidationError{Field: "payment_amount", Reason: "would exceed the bill total (overpayment)"}
		}
		b.AmountPaid = newPaid
		b.PaymentStatus = derivePaymentStatus(newPaid, b.TotalAmount)
		return nil
	})
	if err != nil {
		return nil, translate("record payment", err, &NotFoundError{Resource: "bill", ID: id})
	}
	return b, nil
}

// SetStatus is the direct status edit used by the update-status flow.
// paid forces amount_paid to the total (and requires a non-zero total),
// partial requires a caller-supplied amount strictly inside (0, total),
// pending resets amount_paid to zero.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, target PaymentStatus, amountPaid *money.Amount) (*Bill, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "payment_status", Reason: "must be pending, partial or paid"}
	}
	b, err := s.bills.UpdatePayment(ctx, id, func(b *Bill) error {
		var newPaid money.Amount
		switch target {
		case StatusPaid:
			if b.TotalAmount <= 0 {
				return &ValidationError{Field: "payment_status", Reason: "a zero-total bill cannot be marked paid"}
			}
			newPaid = b.TotalAmount
		case StatusPartial:
			if amountPaid == nil {
				return &ValidationError{Field: "amount_paid", Reason: "is required for partial status"}
			}
			if *amountPaid <= 0 || *amountPaid >= b.TotalAmount {
				return &ValidationError{Field: "amount_paid", Reason: "must be strictly between 0 and the bill total"}
			}
			newPaid = *amountPaid
		case StatusPending:
			newPaid = 0
		}
		b.AmountPaid = newPaid
		b.PaymentStatus = derivePaymentStatus(newPaid, b.TotalAmount)
		return nil
	})
	if err != nil {
		return nil, translate("set status", err, &NotFoundError{Resource: "bill", ID: id})
	}
	return b, nil
}

// Snapshot builds the flattened bill view consumed by receipt composers.
func (s *Service) Snapshot(ctx context.Context, id uuid.UUID) (*BillSnapshot, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := s.dir.GetPatient(ctx, b.PatientID)
	if err != nil {
		return nil, translate("get patient", err, &NotFoundError{Resource: "patient", ID: b.PatientID})
	}
	return &BillSnapshot{
		BillID:          b.ID,
		BillDate:        b.BillDate,
		Patient:         SnapshotPatient{ID: p.ID, Name: p.Name, UHID: p.UHID, Phone: p.Phone},
		Items:           b.Items,
		Subtotal:        b.Subtotal,
		TaxPercent:      b.TaxPercent,
		TaxAmount:       b.TaxAmount,
		OverallDiscount: b.OverallDiscount,
		TotalAmount:     b.TotalAmount,
		AmountPaid:      b.AmountPaid,
		BalanceDue:      b.BalanceDue(),
		PaymentMethod:   b.PaymentMethod,
		PaymentStatus:   b.PaymentStatus,
		TemplateID:      b.TemplateID,
		Notes:           b.Notes,
	}, nil
}
