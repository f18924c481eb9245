package billing

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicd/internal/money"
	"github.com/clinicore/clinicd/internal/platform/auth"
	"github.com/clinicore/clinicd/pkg/pagination"
)

type Handler struct {
	svc     *Service
	queries *QueryService
}

func NewHandler(svc *Service, queries *QueryService) *Handler {
	return &Handler{svc: svc, queries: queries}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	bills := api.Group("/bills", auth.RequireRole("admin", "billing"))
	bills.GET("", h.ListBills)
	bills.GET("/unbilled-visits", h.ListUnbilled)
	bills.GET("/summary", h.Summary)
	bills.POST("", h.CreateBill)
	bills.GET("/:id", h.GetBill)
	bills.GET("/:id/snapshot", h.GetSnapshot)
	bills.PUT("/:id", h.UpdateBill)
	bills.PATCH("/:id/status", h.UpdateStatus)
	bills.PATCH("/:id/payment", h.RecordPayment)
	bills.DELETE("/:id", h.DeleteBill)
}

// writeError maps domain errors onto HTTP status codes. Duplicate creates
// answer 409 with the existing bill's id so the client can redirect to it.
func writeError(c echo.Context, err error) error {
	var ve *ValidationError
	var ce *ConflictError
	var de *DuplicateBillError
	var ne *NotFoundError
	switch {
	case errors.As(err, &de):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":            de.Error(),
			"existing_bill_id": de.ExistingID,
		})
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, ce.Error())
	case errors.As(err, &ne):
		return echo.NewHTTPError(http.StatusNotFound, ne.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func billID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid bill id")
	}
	return id, nil
}

type lineItemRequest struct {
	ServiceName string       `json:"service_name"`
	Quantity    int          `json:"quantity"`
	UnitPrice   money.Amount `json:"unit_price"`
	Days        int          `json:"days"`
	Discount    money.Amount `json:"discount"`
}

func toLineItems(reqs []lineItemRequest) []ServiceLineItem {
	items := make([]ServiceLineItem, len(reqs))
	for i, r := range reqs {
		days := r.Days
		if days == 0 {
			days = 1
		}
		items[i] = ServiceLineItem{
			ServiceName: r.ServiceName,
			Quantity:    r.Quantity,
			UnitPrice:   r.UnitPrice,
			Days:        days,
			Discount:    r.Discount,
		}
	}
	return items
}

type createBillRequest struct {
	PatientID       *uuid.UUID        `json:"patient_id"`
	AppointmentID   *uuid.UUID        `json:"appointment_id"`
	Items           []lineItemRequest `json:"items"`
	TaxPercent      float64           `json:"tax_percent"`
	OverallDiscount money.Amount      `json:"overall_discount"`
	PaymentMethod   string            `json:"payment_method"`
	Notes           string            `json:"notes"`
	TemplateID      *uuid.UUID        `json:"template_id"`
	BillDate        *time.Time        `json:"bill_date"`
}

func (h *Handler) CreateBill(c echo.Context) error {
	var req createBillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	opts := DraftOptions{
		TaxPercent:      req.TaxPercent,
		OverallDiscount: req.OverallDiscount,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		TemplateID:      req.TemplateID,
	}
	if req.BillDate != nil {
		opts.BillDate = *req.BillDate
	}
	items := toLineItems(req.Items)

	ctx := c.Request().Context()

	// Appointment-sourced bills go through the converter, which looks up the
	// visit and supplies the default consultation line. Ad-hoc bills need an
	// explicit patient and items.
	if req.AppointmentID != nil {
		bill, err := h.svc.CreateFromVisit(ctx, *req.AppointmentID, items, opts)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, bill)
	}

	if req.PatientID == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id or appointment_id is required")
	}
	if len(items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "items are required for ad-hoc bills")
	}
	visit := UnbilledVisit{SourceType: SourceAdhoc, PatientID: *req.PatientID}
	draft, err := DraftFromVisit(visit, items, opts)
	if err != nil {
		return writeError(c, err)
	}
	bill, err := h.svc.Create(ctx, draft)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, bill)
}

func (h *Handler) GetBill(c echo.Context) error {
	id, err := billID(c)
	if err != nil {
		return err
	}
	bill, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) GetSnapshot(c echo.Context) error {
	id, err := billID(c)
	if err != nil {
		return err
	}
	snap, err := h.svc.Snapshot(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

type updateBillRequest struct {
	Items           *[]lineItemRequest `json:"items"`
	TaxPercent      *float64           `json:"tax_percent"`
	OverallDiscount *money.Amount      `json:"overall_discount"`
	PaymentMethod   *string            `json:"payment_method"`
	Notes           *string            `json:"notes"`
	TemplateID      *uuid.UUID         `json:"template_id"`
	AmountPaid      *money.Amount      `json:"amount_paid"`
}

func (h *Handler) UpdateBill(c echo.Context) error {
	id, err := billID(c)
	if err != nil {
		return err
	}
	var req updateBillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	upd := UpdateRequest{
		TaxPercent:      req.TaxPercent,
		OverallDiscount: req.OverallDiscount,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		TemplateID:      req.TemplateID,
		AmountPaid:      req.AmountPaid,
	}
	if req.Items != nil {
		upd.Items = toLineItems(*req.Items)
	}

	bill, err := h.svc.Update(c.Request().Context(), id, upd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bill)
}

type updateStatusRequest struct {
	Status     string        `json:"status"`
	AmountPaid *money.Amount `json:"amount_paid"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := billID(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bill, err := h.svc.SetStatus(c.Request().Context(), id, PaymentStatus(req.Status), req.AmountPaid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bill)
}

type recordPaymentRequest struct {
	PaymentAmount money.Amount `json:"payment_amount"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := billID(c)
	if err != nil {
		return err
	}
	var req recordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	bill, err := h.svc.RecordPayment(c.Request().Context(), id, req.PaymentAmount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, bill)
}

func (h *Handler) DeleteBill(c echo.Context) error {
	id, err := billID(c)
	if err != nil {
		return err
	}
	force := c.QueryParam("force") == "true"
	if err := h.svc.Delete(c.Request().Context(), id, force); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func listFilters(c echo.Context) (ListFilters, error) {
	var f ListFilters
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		}
		// inclusive end of day
		t = t.Add(24*time.Hour - time.Nanosecond)
		f.To = &t
	}
	f.PaymentMethod = c.QueryParam("payment_method")
	f.Service = c.QueryParam("service")
	f.Search = c.QueryParam("search")
	return f, nil
}

// ListBills serves both the billed and pending tabs; ?tab=pending switches.
func (h *Handler) ListBills(c echo.Context) error {
	f, err := listFilters(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)

	var (
		bills []*Bill
		total int
	)
	ctx := c.Request().Context()
	if c.QueryParam("tab") == "pending" {
		bills, total, err = h.queries.ListPending(ctx, f, p.Limit, p.Offset())
	} else {
		bills, total, err = h.queries.ListBilled(ctx, f, p.Limit, p.Offset())
	}
	if err != nil {
		return writeError(c, err)
	}
	if bills == nil {
		bills = []*Bill{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(bills, total, p))
}

func (h *Handler) ListUnbilled(c echo.Context) error {
	p := pagination.FromContext(c)
	visits, total, err := h.queries.ListUnbilled(c.Request().Context(), p.Limit, p.Offset())
	if err != nil {
		return writeError(c, err)
	}
	if visits == nil {
		visits = []*UnbilledVisit{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, p))
}

func (h *Handler) Summary(c echo.Context) error {
	f, err := listFilters(c)
	if err != nil {
		return err
	}
	s, err := h.queries.Summary(c.Request().Context(), f.From, f.To)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
