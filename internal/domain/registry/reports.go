package registry

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/domain/records"
	"github.com/ehr/records/internal/platform/resource"
	"github.com/ehr/records/internal/platform/store"
)

// Reports computes read-only aggregates across collections. A nil store or
// any store failure yields an empty result; reports never fail a request.
type Reports struct {
	store  store.Store
	defs   []*resource.Definition
	logger zerolog.Logger
}

// NewReports builds the report set over s, which may be nil.
func NewReports(s store.Store, defs []*resource.Definition, logger zerolog.Logger) *Reports {
	return &Reports{store: s, defs: defs, logger: logger}
}

// AppointmentTotal counts every appointment.
func (r *Reports) AppointmentTotal(ctx context.Context) int64 {
	if r.store == nil {
		r.unavailable("appointments")
		return 0
	}
	n, err := r.store.Collection(records.Appointment().Collection).Count(ctx, nil)
	if err != nil {
		r.logger.Warn().Err(err).Str("report", "appointments").Msg("report degraded")
		return 0
	}
	return n
}

// BillingByStatus sums invoice amounts per status.
func (r *Reports) BillingByStatus(ctx context.Context) []store.GroupTotal {
	if r.store == nil {
		r.unavailable("billing")
		return []store.GroupTotal{}
	}
	totals, err := store.SumBy(ctx, r.store.Collection(records.Billing().Collection), "status", "amount")
	if err != nil {
		r.logger.Warn().Err(err).Str("report", "billing").Msg("report degraded")
		return []store.GroupTotal{}
	}
	return totals
}

// Summary counts the records in every collection. Collections that cannot
// be counted report zero.
func (r *Reports) Summary(ctx context.Context) map[string]int64 {
	counts := make(map[string]int64, len(r.defs))
	for _, d := range r.defs {
		counts[d.Collection] = 0
	}
	if r.store == nil {
		r.unavailable("summary")
		return counts
	}
	for _, d := range r.defs {
		n, err := r.store.Collection(d.Collection).Count(ctx, nil)
		if err != nil {
			r.logger.Warn().Err(err).Str("report", "summary").Str("collection", d.Collection).Msg("report degraded")
			continue
		}
		counts[d.Collection] = n
	}
	return counts
}

func (r *Reports) unavailable(report string) {
	r.logger.Warn().Str("report", report).Msg("store not configured, returning empty report")
}

// ReportHandler serves the /reports routes.
type ReportHandler struct {
	reports *Reports
}

func NewReportHandler(reports *Reports) *ReportHandler {
	return &ReportHandler{reports: reports}
}

func (h *ReportHandler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("/appointments", h.Appointments)
	g.GET("/billing", h.Billing)
	g.GET("/summary", h.Summary)
	g.GET("/:kind", h.Placeholder)
}

func (h *ReportHandler) Appointments(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int64{"total": h.reports.AppointmentTotal(c.Request().Context())})
}

func (h *ReportHandler) Billing(c echo.Context) error {
	return c.JSON(http.StatusOK, h.reports.BillingByStatus(c.Request().Context()))
}

func (h *ReportHandler) Summary(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"counts": h.reports.Summary(c.Request().Context())})
}

// Placeholder answers report kinds that have no aggregate yet.
func (h *ReportHandler) Placeholder(c echo.Context) error {
	return c.JSON(http.StatusOK, []any{})
}
