package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicd/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) GetPatient(ctx context.Context, id uuid.UUID) (*PatientRecord, error) {
	var p PatientRecord
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, uhid, name, phone FROM patient WHERE id = $1`, id).
		Scan(&p.ID, &p.UHID, &p.Name, &p.Phone)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error) {
	var a AppointmentRecord
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, patient_id, doctor_id, consultation_fee, starts_at, status
		 FROM appointment WHERE id = $1`, id).
		Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ConsultationFee, &a.StartsAt, &a.Status)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// unbilledWhere excludes appointments that already carry a live bill. Soft
// deleted bills free the appointment for rebilling.
const unbilledWhere = `a.status = 'completed'
	AND NOT EXISTS (
		SELECT 1 FROM bill b
		WHERE b.appointment_id = a.id AND b.deleted_at IS NULL
	)`

func (r *repoPG) ListCompletedWithoutBill(ctx context.Context, limit, offset int) ([]*UnbilledAppointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment a WHERE `+unbilledWhere).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.consultation_fee, a.starts_at, a.status,
			p.name, p.uhid, p.phone
		FROM appointment a
		JOIN patient p ON p.id = a.patient_id
		WHERE `+unbilledWhere+`
		ORDER BY a.starts_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*UnbilledAppointment
	for rows.Next() {
		var ua UnbilledAppointment
		if err := rows.Scan(&ua.ID, &ua.PatientID, &ua.DoctorID, &ua.ConsultationFee,
			&ua.StartsAt, &ua.Status, &ua.PatientName, &ua.PatientUHID, &ua.PatientPhone); err != nil {
			return nil, 0, err
		}
		items = append(items, &ua)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountCompletedWithoutBill(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment a WHERE `+unbilledWhere).Scan(&n)
	return n, err
}
