package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinicd/internal/money"
	"github.com/clinicore/clinicd/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type billRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &billRepoPG{pool: pool} }

func (r *billRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// begin opens a transaction on the tenant-scoped connection when the request
// carries one, falling back to the pool.
func (r *billRepoPG) begin(ctx context.Context) (pgx.Tx, error) {
	if c := db.ConnFromContext(ctx); c != nil {
		return c.Begin(ctx)
	}
	return r.pool.Begin(ctx)
}

const billCols = `id, patient_id, appointment_id, tax_percent, overall_discount,
	subtotal, tax_amount, total_amount, amount_paid,
	payment_method, payment_status, template_id, notes,
	bill_date, created_at, updated_at`

const billColsB = `b.id, b.patient_id, b.appointment_id, b.tax_percent, b.overall_discount,
	b.subtotal, b.tax_amount, b.total_amount, b.amount_paid,
	b.payment_method, b.payment_status, b.template_id, b.notes,
	b.bill_date, b.created_at, b.updated_at`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.PatientID, &b.AppointmentID, &b.TaxPercent, &b.OverallDiscount,
		&b.Subtotal, &b.TaxAmount, &b.TotalAmount, &b.AmountPaid,
		&b.PaymentMethod, &b.PaymentStatus, &b.TemplateID, &b.Notes,
		&b.BillDate, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

const itemCols = `id, bill_id, sequence, service_name, quantity, unit_price, days, discount, line_total`

func loadItems(ctx context.Context, q queryable, billID uuid.UUID) ([]ServiceLineItem, error) {
	rows, err := q.Query(ctx,
		`SELECT `+itemCols+` FROM bill_item WHERE bill_id = $1 ORDER BY sequence`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ServiceLineItem
	for rows.Next() {
		var li ServiceLineItem
		if err := rows.Scan(&li.ID, &li.BillID, &li.Sequence, &li.ServiceName,
			&li.Quantity, &li.UnitPrice, &li.Days, &li.Discount, &li.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func insertItems(ctx context.Context, q queryable, billID uuid.UUID, items []ServiceLineItem) error {
	for i := range items {
		items[i].ID = uuid.New()
		items[i].BillID = billID
		items[i].Sequence = i + 1
		_, err := q.Exec(ctx, `
			INSERT INTO bill_item (id, bill_id, sequence, service_name, quantity, unit_price, days, discount, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			items[i].ID, billID, items[i].Sequence, items[i].ServiceName,
			items[i].Quantity, items[i].UnitPrice, items[i].Days, items[i].Discount, items[i].LineTotal)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	b.ID = uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO bill (id, patient_id, appointment_id, tax_percent, overall_discount,
			subtotal, tax_amount, total_amount, amount_paid,
			payment_method, payment_status, template_id, notes, bill_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		b.ID, b.PatientID, b.AppointmentID, b.TaxPercent, b.OverallDiscount,
		b.Subtotal, b.TaxAmount, b.TotalAmount, b.AmountPaid,
		b.PaymentMethod, b.PaymentStatus, b.TemplateID, b.Notes, b.BillDate)
	if err != nil {
		return err
	}
	if err := insertItems(ctx, tx, b.ID, b.Items); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *billRepoPG) Get(ctx context.Context, id uuid.UUID) (*Bill, error) {
	q := r.conn(ctx)
	b, err := scanBill(q.QueryRow(ctx,
		`SELECT `+billCols+` FROM bill WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, err
	}
	b.Items, err = loadItems(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *billRepoPG) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error) {
	q := r.conn(ctx)
	b, err := scanBill(q.QueryRow(ctx,
		`SELECT `+billCols+` FROM bill WHERE appointment_id = $1 AND deleted_at IS NULL`, appointmentID))
	if err != nil {
		return nil, err
	}
	b.Items, err = loadItems(ctx, q, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// loadForUpdate reads the bill and its items under the row lock that
// serializes writers on a single bill. Callers validate and mutate the
// returned bill inside the same transaction.
func loadForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Bill, error) {
	b, err := scanBill(tx.QueryRow(ctx,
		`SELECT `+billCols+` FROM bill WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	b.Items, err = loadItems(ctx, tx, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *billRepoPG) Update(ctx context.Context, id uuid.UUID, fn func(*Bill) error) (*Bill, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := loadForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
		UPDATE bill SET tax_percent=$2, overall_discount=$3,
			subtotal=$4, tax_amount=$5, total_amount=$6, amount_paid=$7,
			payment_method=$8, payment_status=$9, template_id=$10, notes=$11,
			bill_date=$12, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.TaxPercent, b.OverallDiscount,
		b.Subtotal, b.TaxAmount, b.TotalAmount, b.AmountPaid,
		b.PaymentMethod, b.PaymentStatus, b.TemplateID, b.Notes,
		b.BillDate)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM bill_item WHERE bill_id = $1`, b.ID); err != nil {
		return nil, err
	}
	if err := insertItems(ctx, tx, b.ID, b.Items); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *billRepoPG) UpdatePayment(ctx context.Context, id uuid.UUID, fn func(*Bill) error) (*Bill, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := loadForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx,
		`UPDATE bill SET amount_paid=$2, payment_status=$3, updated_at=NOW() WHERE id = $1`,
		id, b.AmountPaid, b.PaymentStatus)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *billRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE bill SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *billRepoPG) ListBilled(ctx context.Context, f ListFilters, limit, offset int) ([]*Bill, int, error) {
	return r.list(ctx, f, "b.payment_status <> 'pending'", limit, offset)
}

func (r *billRepoPG) ListPending(ctx context.Context, f ListFilters, limit, offset int) ([]*Bill, int, error) {
	return r.list(ctx, f, "b.payment_status = 'pending'", limit, offset)
}

func (r *billRepoPG) list(ctx context.Context, f ListFilters, statusCond string, limit, offset int) ([]*Bill, int, error) {
	conds := []string{"b.deleted_at IS NULL", statusCond}
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.From != nil {
		add("b.bill_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("b.bill_date <= $%d", *f.To)
	}
	if f.PaymentMethod != "" {
		add("b.payment_method = $%d", f.PaymentMethod)
	}
	if f.Service != "" {
		add(`EXISTS (SELECT 1 FROM bill_item i WHERE i.bill_id = b.id AND i.service_name ILIKE '%%'||$%d||'%%')`, f.Service)
	}
	if f.Search != "" {
		args = append(args, f.Search)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(p.name ILIKE '%%'||$%d||'%%' OR p.uhid ILIKE '%%'||$%d||'%%' OR p.phone ILIKE '%%'||$%d||'%%')`,
			n, n, n))
	}

	where := strings.Join(conds, " AND ")
	from := `FROM bill b JOIN patient p ON p.id = b.patient_id WHERE ` + where

	q := r.conn(ctx)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(
		`SELECT %s %s ORDER BY b.bill_date DESC, b.created_at DESC LIMIT $%d OFFSET $%d`,
		billColsB, from, len(args)+1, len(args)+2), dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bills []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, bills); err != nil {
		return nil, 0, err
	}
	return bills, total, nil
}

// attachItems loads line items for a page of bills in one query.
func (r *billRepoPG) attachItems(ctx context.Context, bills []*Bill) error {
	if len(bills) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(bills))
	byID := make(map[uuid.UUID]*Bill, len(bills))
	for i, b := range bills {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM bill_item WHERE bill_id = ANY($1) ORDER BY bill_id, sequence`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var li ServiceLineItem
		if err := rows.Scan(&li.ID, &li.BillID, &li.Sequence, &li.ServiceName,
			&li.Quantity, &li.UnitPrice, &li.Days, &li.Discount, &li.LineTotal); err != nil {
			return err
		}
		if b, ok := byID[li.BillID]; ok {
			b.Items = append(b.Items, li)
		}
	}
	return rows.Err()
}

func (r *billRepoPG) Summary(ctx context.Context, from, to *time.Time) (*Summary, error) {
	conds := []string{"deleted_at IS NULL"}
	var args []interface{}
	if from != nil {
		args = append(args, *from)
		conds = append(conds, fmt.Sprintf("bill_date >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conds = append(conds, fmt.Sprintf("bill_date <= $%d", len(args)))
	}

	var s Summary
	var paidTotal int64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE payment_status = 'pending'),
			COUNT(*) FILTER (WHERE payment_status = 'paid'),
			COALESCE(SUM(amount_paid) FILTER (WHERE payment_status = 'paid'), 0)
		FROM bill WHERE `+strings.Join(conds, " AND "), args...).
		Scan(&s.TotalBills, &s.PendingCount, &s.PaidCount, &paidTotal)
	if err != nil {
		return nil, err
	}
	s.PaidTotal = money.FromPaise(paidTotal)
	return &s, nil
}
