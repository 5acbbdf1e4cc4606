// Package sheet stores header-addressed tables of string cells: the raw
// webhook log, the working order sheet and the processing sheet.
package sheet

import (
	"context"
	"errors"
)

var (
	ErrProtected = errors.New("sheet is protected")
	ErrNoRow     = errors.New("row not found")
)

type Row struct {
	ID    int64
	Cells []string
	Color string
}

type CellUpdate struct {
	RowID  int64
	Column int
	Value  string
}

// Store is the table backend. Sheets are created on first write; reading a
// sheet that was never written returns an empty header and no rows.
type Store interface {
	Header(ctx context.Context, sheet string) ([]string, error)
	SetHeader(ctx context.Context, sheet string, header []string) error
	Rows(ctx context.Context, sheet string) ([]Row, error)
	Append(ctx context.Context, sheet string, rows []Row) error
	SetCells(ctx context.Context, sheet string, updates []CellUpdate) error
	DeleteRows(ctx context.Context, sheet string, ids []int64) error
	// Protect makes existing and future rows of the sheet immutable.
	Protect(ctx context.Context, sheet string) error
}

// Batch is a run of rows bound for one sheet.
type Batch struct {
	Sheet string
	Rows  []Row
}

// BatchAppender appends to several sheets at once: either every batch is
// stored or none is.
type BatchAppender interface {
	AppendBatches(ctx context.Context, batches []Batch) error
}

// AppendAll writes the batches in one step when the store is a
// BatchAppender and one Append per batch otherwise. In the fallback a
// failure leaves the earlier batches stored.
func AppendAll(ctx context.Context, store Store, batches []Batch) error {
	if ba, ok := store.(BatchAppender); ok {
		return ba.AppendBatches(ctx, batches)
	}
	for _, b := range batches {
		if err := store.Append(ctx, b.Sheet, b.Rows); err != nil {
			return err
		}
	}
	return nil
}

// Counter is a persisted integer cycling modulo a caller-chosen size.
type Counter interface {
	Current(ctx context.Context, name string) (int, error)
	Advance(ctx context.Context, name string, modulo int) (int, error)
}

// EnsureHeader writes header when the sheet has none and returns the header
// the sheet ends up with.
func EnsureHeader(ctx context.Context, store Store, sheet string, header []string) ([]string, error) {
	existing, err := store.Header(ctx, sheet)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	if err := store.SetHeader(ctx, sheet, header); err != nil {
		return nil, err
	}
	return header, nil
}

// Records reads every row of a sheet through its header.
func Records(ctx context.Context, store Store, sheet string) (Schema, []Row, []Record, error) {
	header, err := store.Header(ctx, sheet)
	if err != nil {
		return Schema{}, nil, nil, err
	}
	rows, err := store.Rows(ctx, sheet)
	if err != nil {
		return Schema{}, nil, nil, err
	}
	schema := NewSchema(header)
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record{Schema: schema, Cells: row.Cells}
	}
	return schema, rows, records, nil
}
