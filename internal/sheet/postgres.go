package sheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// protectedSQLState is raised by the sheet_rows trigger for protected sheets.
const protectedSQLState = "42501"

// PGStore keeps sheets in the sheets/sheet_rows tables and counters in counters.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Header(ctx context.Context, sheet string) ([]string, error) {
	var header []string
	err := s.pool.QueryRow(ctx, `SELECT header FROM sheets WHERE name = $1`, sheet).Scan(&header)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load header of %s: %w", sheet, err)
	}
	return header, nil
}

func (s *PGStore) SetHeader(ctx context.Context, sheet string, header []string) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO sheets (name, header)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header
		WHERE NOT sheets.protected OR cardinality(sheets.header) = 0
	`, sheet, header)
	if err != nil {
		return fmt.Errorf("set header of %s: %w", sheet, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set header of %s: %w", sheet, ErrProtected)
	}
	return nil
}

func (s *PGStore) Rows(ctx context.Context, sheet string) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, cells, color
		FROM sheet_rows
		WHERE sheet_name = $1
		ORDER BY id
	`, sheet)
	if err != nil {
		return nil, fmt.Errorf("load rows of %s: %w", sheet, err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.Cells, &row.Color); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", sheet, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", sheet, err)
	}
	return result, nil
}

func (s *PGStore) Append(ctx context.Context, sheet string, rows []Row) error {
	return s.AppendBatches(ctx, []Batch{{Sheet: sheet, Rows: rows}})
}

// AppendBatches copies every batch inside one transaction.
func (s *PGStore) AppendBatches(ctx context.Context, batches []Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range batches {
		if len(b.Rows) == 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `INSERT INTO sheets (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, b.Sheet); err != nil {
			return fmt.Errorf("register sheet %s: %w", b.Sheet, err)
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"sheet_rows"},
			[]string{"sheet_name", "cells", "color"},
			pgx.CopyFromSlice(len(b.Rows), func(i int) ([]any, error) {
				return []any{b.Sheet, b.Rows[i].Cells, b.Rows[i].Color}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("append rows to %s: %w", b.Sheet, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (s *PGStore) SetCells(ctx context.Context, sheet string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	byRow := map[int64][]CellUpdate{}
	order := []int64{}
	for _, upd := range updates {
		if _, ok := byRow[upd.RowID]; !ok {
			order = append(order, upd.RowID)
		}
		byRow[upd.RowID] = append(byRow[upd.RowID], upd)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update of %s: %w", sheet, err)
	}
	defer tx.Rollback(ctx)

	for _, rowID := range order {
		var cells []string
		err := tx.QueryRow(ctx, `
			SELECT cells FROM sheet_rows WHERE id = $1 AND sheet_name = $2 FOR UPDATE
		`, rowID, sheet).Scan(&cells)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("update %s row %d: %w", sheet, rowID, ErrNoRow)
		}
		if err != nil {
			return fmt.Errorf("lock %s row %d: %w", sheet, rowID, err)
		}
		for _, upd := range byRow[rowID] {
			for len(cells) <= upd.Column {
				cells = append(cells, "")
			}
			cells[upd.Column] = upd.Value
		}
		if _, err := tx.Exec(ctx, `UPDATE sheet_rows SET cells = $1 WHERE id = $2`, cells, rowID); err != nil {
			return fmt.Errorf("update %s row %d: %w", sheet, rowID, mapProtected(err))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update of %s: %w", sheet, err)
	}
	return nil
}

func (s *PGStore) DeleteRows(ctx context.Context, sheet string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM sheet_rows WHERE sheet_name = $1 AND id = ANY($2)`, sheet, ids); err != nil {
		return fmt.Errorf("delete rows from %s: %w", sheet, mapProtected(err))
	}
	return nil
}

func (s *PGStore) Protect(ctx context.Context, sheet string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sheets (name, protected)
		VALUES ($1, TRUE)
		ON CONFLICT (name) DO UPDATE SET protected = TRUE
	`, sheet)
	if err != nil {
		return fmt.Errorf("protect %s: %w", sheet, err)
	}
	return nil
}

func (s *PGStore) Current(ctx context.Context, name string) (int, error) {
	var value int
	err := s.pool.QueryRow(ctx, `SELECT value FROM counters WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load counter %s: %w", name, err)
	}
	return value, nil
}

func (s *PGStore) Advance(ctx context.Context, name string, modulo int) (int, error) {
	if modulo <= 0 {
		return 0, fmt.Errorf("advance %s: modulo must be positive", name)
	}
	var value int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO counters (name, value)
		VALUES ($1, 1 % $2)
		ON CONFLICT (name) DO UPDATE
		SET value = (counters.value + 1) % $2, updated_at = now()
		RETURNING value
	`, name, modulo).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("advance counter %s: %w", name, err)
	}
	return value, nil
}

func mapProtected(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == protectedSQLState {
		return fmt.Errorf("%w: %s", ErrProtected, pgErr.Message)
	}
	return err
}
