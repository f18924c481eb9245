package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicd/internal/money"
)

// PaymentStatus is the closed set of payment states a bill moves through.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// derivePaymentStatus is the only place payment status is computed. Every
// mutation rederives status from the paid/total pair; it is never set
// independently.
func derivePaymentStatus(amountPaid, totalAmount money.Amount) PaymentStatus {
	if amountPaid <= 0 {
		return StatusPending
	}
	if totalAmount > 0 && amountPaid >= totalAmount {
		return StatusPaid
	}
	return StatusPartial
}

// SourceType tells where a bill draft originated.
type SourceType string

const (
	SourceAppointment SourceType = "appointment"
	SourceAdhoc       SourceType = "adhoc"
)

// ServiceLineItem is one billable service entry. Line items are owned
// exclusively by the bill they belong to.
type ServiceLineItem struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	BillID      uuid.UUID    `db:"bill_id" json:"bill_id"`
	Sequence    int          `db:"sequence" json:"sequence"`
	ServiceName string       `db:"service_name" json:"service_name"`
	Quantity    int          `db:"quantity" json:"quantity"`
	UnitPrice   money.Amount `db:"unit_price" json:"unit_price"`
	Days        int          `db:"days" json:"days"`
	Discount    money.Amount `db:"discount" json:"discount"`
	LineTotal   money.Amount `db:"line_total" json:"line_total"`
}

// ComputeLineTotal returns unitPrice × quantity × days − discount, clamped
// to zero. It does not validate; see Validate.
func (li *ServiceLineItem) ComputeLineTotal() money.Amount {
	days := li.Days
	if days < 1 {
		days = 1
	}
	gross := li.UnitPrice.MulInt(li.Quantity).MulInt(days)
	return gross.Sub(li.Discount).ClampZero()
}

func (li *ServiceLineItem) Validate() error {
	if li.ServiceName == "" {
		return &ValidationError{Field: "service_name", Reason: "is required"}
	}
	if li.Quantity < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if li.Days < 1 {
		return &ValidationError{Field: "days", Reason: "must be at least 1"}
	}
	if li.UnitPrice.IsNegative() {
		return &ValidationError{Field: "unit_price", Reason: "must not be negative"}
	}
	if li.Discount.IsNegative() {
		return &ValidationError{Field: "discount", Reason: "must not be negative"}
	}
	return nil
}

// Bill is the persisted billable record for a visit. Subtotal, TaxAmount and
// TotalAmount are derived by the billing engine and read-only to callers;
// AmountPaid and PaymentStatus are mutated only through the payment paths.
type Bill struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	AppointmentID   *uuid.UUID        `db:"appointment_id" json:"appointment_id,omitempty"`
	Items           []ServiceLineItem `db:"-" json:"items"`
	TaxPercent      float64           `db:"tax_percent" json:"tax_percent"`
	OverallDiscount money.Amount      `db:"overall_discount" json:"overall_discount"`
	Subtotal        money.Amount      `db:"subtotal" json:"subtotal"`
	TaxAmount       money.Amount      `db:"tax_amount" json:"tax_amount"`
	TotalAmount     money.Amount      `db:"total_amount" json:"total_amount"`
	AmountPaid      money.Amount      `db:"amount_paid" json:"amount_paid"`
	PaymentMethod   string            `db:"payment_method" json:"payment_method,omitempty"`
	PaymentStatus   PaymentStatus     `db:"payment_status" json:"payment_status"`
	TemplateID      *uuid.UUID        `db:"template_id" json:"template_id,omitempty"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	BillDate        time.Time         `db:"bill_date" json:"bill_date"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
	DeletedAt       *time.Time        `db:"deleted_at" json:"-"`
}

// BalanceDue is the outstanding amount on the bill.
func (b *Bill) BalanceDue() money.Amount {
	return b.TotalAmount.Sub(b.AmountPaid).ClampZero()
}

// UnbilledVisit is a read-only projection of a completed appointment that has
// no bill yet. It is never persisted by this package; the query side derives
// it by left-excluding appointments that already carry a live bill.
type UnbilledVisit struct {
	SourceID        uuid.UUID    `json:"source_id"`
	SourceType      SourceType   `json:"source_type"`
	PatientID       uuid.UUID    `json:"patient_id"`
	PatientName     string       `json:"patient_name"`
	UHID            string       `json:"uhid"`
	Phone           string       `json:"phone,omitempty"`
	DoctorID        uuid.UUID    `json:"doctor_id"`
	ConsultationFee money.Amount `json:"consultation_fee"`
	AppointmentDate time.Time    `json:"appointment_date"`
}

// SnapshotPatient is the patient identity block on a bill snapshot.
type SnapshotPatient struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	UHID  string    `json:"uhid"`
	Phone string    `json:"phone,omitempty"`
}

// BillSnapshot is the flattened, fully derived view of a bill handed to
// receipt composers (PDF, WhatsApp, email). Everything a renderer needs is
// on the snapshot; composers never read ledger state directly.
type BillSnapshot struct {
	BillID          uuid.UUID         `json:"bill_id"`
	BillDate        time.Time         `json:"bill_date"`
	Patient         SnapshotPatient   `json:"patient"`
	Items           []ServiceLineItem `json:"items"`
	Subtotal        money.Amount      `json:"subtotal"`
	TaxPercent      float64           `json:"tax_percent"`
	TaxAmount       money.Amount      `json:"tax_amount"`
	OverallDiscount money.Amount      `json:"overall_discount"`
	TotalAmount     money.Amount      `json:"total_amount"`
	AmountPaid      money.Amount      `json:"amount_paid"`
	BalanceDue      money.Amount      `json:"balance_due"`
	PaymentMethod   string            `json:"payment_method,omitempty"`
	PaymentStatus   PaymentStatus     `json:"payment_status"`
	TemplateID      *uuid.UUID        `json:"template_id,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

// Summary holds the dashboard counters. Computed fresh on every read; there
// is no cached aggregate to invalidate.
type Summary struct {
	TotalBills    int          `json:"total_bills"`
	UnbilledCount int          `json:"unbilled_count"`
	PendingCount  int          `json:"pending_count"`
	PaidCount     int          `json:"paid_count"`
	PaidTotal     money.Amount `json:"paid_total"`
}
