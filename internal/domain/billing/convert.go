package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicd/internal/money"
)

// DraftOptions are the caller-editable fields of a new bill draft.
type DraftOptions struct {
	TaxPercent      float64
	OverallDiscount money.Amount
	PaymentMethod   string
	Notes           string
	TemplateID      *uuid.UUID
	BillDate        time.Time // zero means now
}

// DraftFromVisit turns an unbilled visit into a bill draft. When the caller
// supplies no items, a single "Consultation" line at the visit's consultation
// fee is used. The draft always starts pending with nothing paid, and carries
// the appointment id when the visit came from an appointment so the ledger
// can enforce duplicate prevention. Nothing is persisted here; the draft is
// handed to the ledger's create.
func DraftFromVisit(visit UnbilledVisit, items []ServiceLineItem, opts DraftOptions) (*Bill, error) {
	if visit.PatientID == uuid.Nil {
		return nil, &ValidationError{Field: "patient_id", Reason: "is required"}
	}

	if len(items) == 0 {
		items = []ServiceLineItem{{
			ServiceName: "Consultation",
			Quantity:    1,
			Days:        1,
			UnitPrice:   visit.ConsultationFee,
		}}
	}

	billDate := opts.BillDate
	if billDate.IsZero() {
		billDate = time.Now()
	}

	b := &Bill{
		PatientID:       visit.PatientID,
		Items:           items,
		TaxPercent:      opts.TaxPercent,
		OverallDiscount: opts.OverallDiscount,
		AmountPaid:      0,
		PaymentMethod:   opts.PaymentMethod,
		PaymentStatus:   StatusPending,
		TemplateID:      opts.TemplateID,
		Notes:           opts.Notes,
		BillDate:        billDate,
	}
	if visit.SourceType == SourceAppointment && visit.SourceID != uuid.Nil {
		id := visit.SourceID
		b.AppointmentID = &id
	}

	if err := recalculate(b); err != nil {
		return nil, err
	}
	return b, nil
}
