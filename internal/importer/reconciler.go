// Package importer moves pending rows from the working order sheet into the
// processing sheet and maintains delivery dates there.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/order"
	"github.com/mealbox/orders-api/internal/schedule"
	"github.com/mealbox/orders-api/internal/sheet"
)

type Reconciler struct {
	Source           sheet.Store
	SourceSheet      string
	Destination      sheet.Store
	DestinationSheet string
	Audit            *audit.Logger
	Logger           *slog.Logger
	Location         *time.Location
	Now              func() time.Time
}

type Result struct {
	Imported      int    `json:"imported"`
	Orders        int    `json:"orders"`
	DatesResolved int    `json:"datesResolved"`
	Report        Report `json:"report"`
}

// Run imports every pending, valid source row once. Rows are appended to the
// destination first and marked imported only after the append succeeded, so
// a failure never leaves a row marked without having been copied.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	result := Result{Report: Report{Rows: []ValidationError{}}}

	srcHeader, err := r.Source.Header(ctx, r.SourceSheet)
	if err != nil {
		return result, storageErr("read source header", err)
	}
	if len(srcHeader) == 0 {
		return result, &ConfigError{Message: fmt.Sprintf("source sheet %q has no header", r.SourceSheet)}
	}
	srcSchema := sheet.NewSchema(srcHeader)
	if missing := srcSchema.Missing(sheet.FieldOrderID, sheet.FieldDish, sheet.FieldQuantity, sheet.FieldImportStatus); len(missing) > 0 {
		return result, &ConfigError{Message: fmt.Sprintf("source sheet %q is missing columns: %s", r.SourceSheet, strings.Join(missing, ", "))}
	}
	statusIdx, _ := srcSchema.Index(sheet.FieldImportStatus)

	srcRows, err := r.Source.Rows(ctx, r.SourceSheet)
	if err != nil {
		return result, storageErr("read source rows", err)
	}

	destHeader, err := r.Destination.Header(ctx, r.DestinationSheet)
	if err != nil {
		return result, storageErr("read destination header", err)
	}
	writeHeader := len(destHeader) == 0
	if writeHeader {
		destHeader = srcSchema.Without(sheet.FieldImportStatus)
	}
	destSchema := sheet.NewSchema(destHeader)
	mapping := destSchema.Projection(srcSchema)

	var (
		picked    []sheet.Row
		projected []sheet.Record
	)
	for i, row := range srcRows {
		rec := sheet.Record{Schema: srcSchema, Cells: row.Cells}
		if IsImported(rec) {
			continue
		}
		if reason := validateRow(rec); reason != "" {
			rejection := ValidationError{Row: i + 2, OrderID: rec.Get(sheet.FieldOrderID), Reason: reason}
			result.Report.add(rejection)
			r.audit(ctx, audit.Entry{
				Action:   audit.ActionRowRejected,
				Message:  rejection.Error(),
				OrderID:  rejection.OrderID,
				Metadata: map[string]any{"sheet": r.SourceSheet, "row": rejection.Row},
			})
			continue
		}
		picked = append(picked, row)
		projected = append(projected, sheet.Record{Schema: destSchema, Cells: sheet.Project(row.Cells, mapping)})
	}
	if len(picked) == 0 {
		return result, nil
	}

	orders := order.Aggregate(projected, r.location())
	result.Orders = orders.Len()
	result.DatesResolved = fillDates(projected, orders, r.now())

	destRows, err := r.Destination.Rows(ctx, r.DestinationSheet)
	if err != nil {
		return result, storageErr("read destination rows", err)
	}
	prevColor, prevOrderID := "", ""
	if n := len(destRows); n > 0 {
		prevColor = destRows[n-1].Color
		prevOrderID = sheet.Record{Schema: destSchema, Cells: destRows[n-1].Cells}.Get(sheet.FieldOrderID)
	}
	colors := colorByOrder(projected, prevColor, prevOrderID)

	out := make([]sheet.Row, len(projected))
	for i, rec := range projected {
		out[i] = sheet.Row{Cells: rec.Cells, Color: colors[i]}
	}

	if writeHeader {
		if err := r.Destination.SetHeader(ctx, r.DestinationSheet, destHeader); err != nil {
			return result, r.fail(ctx, storageErr("write destination header", err))
		}
	}
	if err := r.Destination.Append(ctx, r.DestinationSheet, out); err != nil {
		return result, r.fail(ctx, storageErr("append to destination", err))
	}

	marks := make([]sheet.CellUpdate, len(picked))
	for i, row := range picked {
		marks[i] = sheet.CellUpdate{RowID: row.ID, Column: statusIdx, Value: sheet.StatusImported}
	}
	if err := r.Source.SetCells(ctx, r.SourceSheet, marks); err != nil {
		return result, r.fail(ctx, &StorageError{Op: "mark source rows imported", Appended: len(out), Err: err})
	}

	result.Imported = len(out)
	r.audit(ctx, audit.Entry{
		Action:  audit.ActionImportComplete,
		Message: fmt.Sprintf("imported %d rows of %d orders", result.Imported, result.Orders),
		Metadata: map[string]any{
			"source":        r.SourceSheet,
			"destination":   r.DestinationSheet,
			"imported":      result.Imported,
			"rejected":      result.Report.Count,
			"datesResolved": result.DatesResolved,
		},
	})
	return result, nil
}

// IsImported reports whether the row's status marker is set.
func IsImported(rec sheet.Record) bool {
	return strings.EqualFold(rec.Get(sheet.FieldImportStatus), sheet.StatusImported)
}

func validateRow(rec sheet.Record) string {
	if rec.Get(sheet.FieldOrderID) == "" {
		return "missing order id"
	}
	if rec.Get(sheet.FieldDish) == "" {
		return "missing dish"
	}
	if _, ok := order.ParseQuantity(rec.Get(sheet.FieldQuantity)); !ok {
		return fmt.Sprintf("invalid quantity %q", rec.Get(sheet.FieldQuantity))
	}
	return ""
}

// fillDates resolves delivery dates per order and writes them into empty
// delivery-date cells of records. It returns the number of cells written.
func fillDates(records []sheet.Record, orders *order.Set, now time.Time) int {
	filled := 0
	orders.Each(func(o *order.Order) {
		ref := o.Date
		if ref.IsZero() {
			ref = now
		}
		for row, date := range schedule.Resolve(o.Lines, ref, schedule.ParseDeliveryType(o.DeliveryType)) {
			if records[row].Get(sheet.FieldDeliveryDate) != "" {
				continue
			}
			if records[row].Set(sheet.FieldDeliveryDate, sheet.FormatDate(date)) {
				filled++
			}
		}
	})
	return filled
}

// colorByOrder cycles the palette each time the order id changes, continuing
// from the colour and order id of the row preceding records.
func colorByOrder(records []sheet.Record, prevColor, prevOrderID string) []string {
	idx := sheet.PaletteIndex(prevColor)
	last := prevOrderID
	colors := make([]string, len(records))
	for i, rec := range records {
		id := rec.Get(sheet.FieldOrderID)
		if id != last || idx < 0 {
			idx = (idx + 1) % len(sheet.Palette)
			last = id
		}
		colors[i] = sheet.Palette[idx]
	}
	return colors
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().In(r.location())
	}
	return time.Now().In(r.location())
}

func (r *Reconciler) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func (r *Reconciler) fail(ctx context.Context, err error) error {
	r.audit(ctx, audit.Entry{
		Action:   audit.ActionImportFailed,
		Message:  err.Error(),
		Metadata: map[string]any{"source": r.SourceSheet, "destination": r.DestinationSheet},
	})
	return err
}

func (r *Reconciler) audit(ctx context.Context, entry audit.Entry) {
	if r.Audit == nil {
		return
	}
	if err := r.Audit.Log(ctx, entry); err != nil && r.Logger != nil {
		r.Logger.ErrorContext(ctx, "import_audit_failed", "error", err)
	}
}
