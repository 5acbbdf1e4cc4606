package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/order"
	"github.com/mealbox/orders-api/internal/sheet"
)

// Filler writes missing delivery dates into the processing sheet.
type Filler struct {
	Store    sheet.Store
	Sheet    string
	Audit    *audit.Logger
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time
}

type FillResult struct {
	Orders        int  `json:"orders"`
	Filled        int  `json:"filled"`
	AlreadyFilled bool `json:"alreadyFilled"`
}

// Fill resolves dates for every order, or only for orderID when it is not
// empty. Grouping considers all rows of an order; only empty cells are written.
func (f *Filler) Fill(ctx context.Context, orderID string) (FillResult, error) {
	var result FillResult
	orderID = strings.TrimSpace(orderID)

	schema, rows, records, err := sheet.Records(ctx, f.Store, f.Sheet)
	if err != nil {
		return result, storageErr("read "+f.Sheet, err)
	}
	if len(rows) == 0 {
		if orderID != "" {
			return result, fmt.Errorf("order %q: %w", orderID, ErrOrderNotFound)
		}
		return result, nil
	}
	if missing := schema.Missing(sheet.FieldDeliveryDate, sheet.FieldDay, sheet.FieldDeliveryType, sheet.FieldOrderID); len(missing) > 0 {
		return result, &ConfigError{Message: fmt.Sprintf("sheet %q is missing columns: %s", f.Sheet, strings.Join(missing, ", "))}
	}
	dateIdx, _ := schema.Index(sheet.FieldDeliveryDate)

	selected := make([]sheet.Record, 0, len(records))
	selectedRows := make([]sheet.Row, 0, len(records))
	for i, rec := range records {
		if rec.Get(sheet.FieldOrderID) == "" {
			continue
		}
		if orderID != "" && rec.Get(sheet.FieldOrderID) != orderID {
			continue
		}
		selected = append(selected, sheet.Record{Schema: schema, Cells: append([]string(nil), rec.Cells...)})
		selectedRows = append(selectedRows, rows[i])
	}
	if orderID != "" && len(selected) == 0 {
		return result, fmt.Errorf("order %q: %w", orderID, ErrOrderNotFound)
	}

	empty := 0
	for _, rec := range selected {
		if rec.Get(sheet.FieldDeliveryDate) == "" {
			empty++
		}
	}
	orders := order.Aggregate(selected, f.location())
	result.Orders = orders.Len()
	if empty == 0 {
		result.AlreadyFilled = true
		return result, nil
	}

	before := make([]string, len(selected))
	for i, rec := range selected {
		before[i] = rec.Get(sheet.FieldDeliveryDate)
	}
	fillDates(selected, orders, f.now())

	var updates []sheet.CellUpdate
	for i, rec := range selected {
		if before[i] != "" {
			continue
		}
		if value := rec.Get(sheet.FieldDeliveryDate); value != "" {
			updates = append(updates, sheet.CellUpdate{RowID: selectedRows[i].ID, Column: dateIdx, Value: value})
		}
	}
	if len(updates) == 0 {
		return result, nil
	}
	if err := f.Store.SetCells(ctx, f.Sheet, updates); err != nil {
		return result, storageErr("write delivery dates", err)
	}
	result.Filled = len(updates)

	if f.Audit != nil {
		if err := f.Audit.Log(ctx, audit.Entry{
			Action:   audit.ActionDatesFilled,
			Message:  fmt.Sprintf("filled %d delivery dates", result.Filled),
			OrderID:  orderID,
			Metadata: map[string]any{"sheet": f.Sheet, "orders": result.Orders},
		}); err != nil && f.Logger != nil {
			f.Logger.ErrorContext(ctx, "fill_audit_failed", "error", err)
		}
	}
	return result, nil
}

func (f *Filler) now() time.Time {
	if f.Now != nil {
		return f.Now().In(f.location())
	}
	return time.Now().In(f.location())
}

func (f *Filler) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}
