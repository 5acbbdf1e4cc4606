package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/mealbox/orders-api/internal/httpx"
	"github.com/mealbox/orders-api/internal/importer"
	"github.com/mealbox/orders-api/internal/plan"
	"github.com/mealbox/orders-api/internal/sheet"
)

type cookingDay struct {
	Date   openapi_types.Date  `json:"date"`
	Dishes []plan.DishQuantity `json:"dishes"`
}

type cookingPlanResponse struct {
	Days      []cookingDay        `json:"days"`
	Undated   []plan.DishQuantity `json:"undated"`
	RequestID string              `json:"requestId"`
}

type summaryResponse struct {
	plan.Report
	From      openapi_types.Date `json:"from"`
	To        openapi_types.Date `json:"to"`
	RequestID string             `json:"requestId"`
}

func (s *Server) GetCookingPlan(w http.ResponseWriter, r *http.Request) {
	_, _, records, err := sheet.Records(r.Context(), s.Destination, s.Config.DestinationSheet)
	if err != nil {
		s.writePipelineError(w, r, &importer.StorageError{Op: "read " + s.Config.DestinationSheet, Err: err}, "Failed to load orders")
		return
	}

	p := plan.CookingPlan(records, s.Config.Location)
	days := make([]cookingDay, len(p.Days))
	for i, day := range p.Days {
		days[i] = cookingDay{Date: dateOnly(day.Date), Dishes: day.Dishes}
	}
	httpx.WriteJSON(w, http.StatusOK, cookingPlanResponse{
		Days:      days,
		Undated:   p.Undated,
		RequestID: httpx.RequestIDFromContext(r.Context()),
	})
}

type invoiceDelivery struct {
	plan.InvoiceDelivery
	Date *openapi_types.Date `json:"date"`
}

type invoiceResponse struct {
	plan.Invoice
	Deliveries []invoiceDelivery `json:"deliveries"`
	RequestID  string            `json:"requestId"`
}

func (s *Server) GetOrderInvoice(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	_, _, records, err := sheet.Records(r.Context(), s.Destination, s.Config.DestinationSheet)
	if err != nil {
		s.writePipelineError(w, r, &importer.StorageError{Op: "read " + s.Config.DestinationSheet, Err: err}, "Failed to load orders")
		return
	}

	inv, ok := plan.BuildInvoice(records, orderID, s.Config.Location)
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Order not found", map[string]string{"orderId": orderID})
		return
	}
	deliveries := make([]invoiceDelivery, len(inv.Deliveries))
	for i, d := range inv.Deliveries {
		deliveries[i] = invoiceDelivery{InvoiceDelivery: d}
		if d.Date != nil {
			date := dateOnly(*d.Date)
			deliveries[i].Date = &date
		}
	}
	httpx.WriteJSON(w, http.StatusOK, invoiceResponse{
		Invoice:    inv,
		Deliveries: deliveries,
		RequestID:  httpx.RequestIDFromContext(r.Context()),
	})
}

func (s *Server) GetReportsSummary(w http.ResponseWriter, r *http.Request) {
	from, okFrom := parseDateParam(r, "from")
	to, okTo := parseDateParam(r, "to")
	if !okFrom || !okTo {
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeValidation, "`from` and `to` must be dates in YYYY-MM-DD format", nil)
		return
	}
	if from.After(to) {
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeValidation, "`from` must not be after `to`", nil)
		return
	}

	_, _, records, err := sheet.Records(r.Context(), s.Source, s.Config.RawSheet)
	if err != nil {
		s.writePipelineError(w, r, &importer.StorageError{Op: "read " + s.Config.RawSheet, Err: err}, "Failed to load raw orders")
		return
	}

	loc := s.Config.Location
	report := plan.Summarize(plan.InPeriod(records, from, to, loc), from, to, loc)
	httpx.WriteJSON(w, http.StatusOK, summaryResponse{
		Report:    report,
		From:      dateOnly(from),
		To:        dateOnly(to),
		RequestID: httpx.RequestIDFromContext(r.Context()),
	})
}

func parseDateParam(r *http.Request, name string) (time.Time, bool) {
	t, err := time.Parse(openapi_types.DateFormat, r.URL.Query().Get(name))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func dateOnly(t time.Time) openapi_types.Date {
	return openapi_types.Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}
