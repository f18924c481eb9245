package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinicd/internal/money"
)

// PatientRecord is the read-only patient identity the billing core consumes.
// This package never writes to the directory tables.
type PatientRecord struct {
	ID    uuid.UUID `db:"id" json:"id"`
	UHID  string    `db:"uhid" json:"uhid"`
	Name  string    `db:"name" json:"name"`
	Phone string    `db:"phone" json:"phone,omitempty"`
}

// AppointmentRecord is the read-only appointment view used for
// visit-to-bill conversion.
type AppointmentRecord struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	PatientID       uuid.UUID    `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID    `db:"doctor_id" json:"doctor_id"`
	ConsultationFee money.Amount `db:"consultation_fee" json:"consultation_fee"`
	StartsAt        time.Time    `db:"starts_at" json:"starts_at"`
	Status          string       `db:"status" json:"status"`
}

// UnbilledAppointment is a completed appointment joined with its patient,
// for which no live bill exists yet.
type UnbilledAppointment struct {
	AppointmentRecord
	PatientName  string `db:"patient_name" json:"patient_name"`
	PatientUHID  string `db:"patient_uhid" json:"patient_uhid"`
	PatientPhone string `db:"patient_phone" json:"patient_phone,omitempty"`
}
