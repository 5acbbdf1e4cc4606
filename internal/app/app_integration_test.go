package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/db"
	"github.com/mealbox/orders-api/internal/lock"
	"github.com/mealbox/orders-api/internal/sheet"
)

type pgEnv struct {
	pool  *pgxpool.Pool
	store *sheet.PGStore
	url   string
}

func setupPG(t *testing.T) pgEnv {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, `DROP SCHEMA public CASCADE; CREATE SCHEMA public;`); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	if err := db.Migrate(databaseURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pgEnv{pool: pool, store: sheet.NewPGStore(pool), url: databaseURL}
}

func TestPGProtectedSheetRejectsEdits(t *testing.T) {
	env := setupPG(t)
	ctx := context.Background()
	cfg := testConfig()

	if err := Bootstrap(ctx, cfg, env.store); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := Bootstrap(ctx, cfg, env.store); err != nil {
		t.Fatalf("bootstrap must be repeatable: %v", err)
	}

	if err := env.store.Append(ctx, cfg.RawSheet, []sheet.Row{{Cells: []string{"1"}, Color: sheet.Palette[0]}}); err != nil {
		t.Fatalf("append to protected sheet must succeed: %v", err)
	}
	rows, err := env.store.Rows(ctx, cfg.RawSheet)
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows: %v (%d)", err, len(rows))
	}

	err = env.store.SetCells(ctx, cfg.RawSheet, []sheet.CellUpdate{{RowID: rows[0].ID, Column: 0, Value: "2"}})
	if !errors.Is(err, sheet.ErrProtected) {
		t.Fatalf("expected ErrProtected on update, got %v", err)
	}
	err = env.store.DeleteRows(ctx, cfg.RawSheet, []int64{rows[0].ID})
	if !errors.Is(err, sheet.ErrProtected) {
		t.Fatalf("expected ErrProtected on delete, got %v", err)
	}
}

func TestPGAppendBatchesRollsBackTogether(t *testing.T) {
	env := setupPG(t)
	ctx := context.Background()
	cfg := testConfig()

	err := env.store.AppendBatches(ctx, []sheet.Batch{
		{Sheet: cfg.RawSheet, Rows: []sheet.Row{{Cells: []string{"1"}}}},
		{Sheet: cfg.WorkingSheet, Rows: []sheet.Row{{Cells: nil}}},
	})
	if err == nil {
		t.Fatal("expected the null cells row to fail")
	}
	if rows, err := env.store.Rows(ctx, cfg.RawSheet); err != nil || len(rows) != 0 {
		t.Fatalf("raw rows must roll back: %v (%d)", err, len(rows))
	}
}

func TestPGCounterCycles(t *testing.T) {
	env := setupPG(t)
	ctx := context.Background()

	if v, err := env.store.Current(ctx, sheet.ColorCounter); err != nil || v != 0 {
		t.Fatalf("fresh counter: %d, %v", v, err)
	}
	want := []int{1, 2, 0, 1}
	for i, w := range want {
		got, err := env.store.Advance(ctx, sheet.ColorCounter, 3)
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if got != w {
			t.Fatalf("advance %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestPGAdvisoryLockExcludes(t *testing.T) {
	env := setupPG(t)
	ctx := context.Background()

	first := lock.NewAdvisory(env.pool, 42, time.Second)
	second := lock.NewAdvisory(env.pool, 42, 100*time.Millisecond)

	release, err := first.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := second.Acquire(ctx); !errors.Is(err, lock.ErrTimeout) {
		t.Fatalf("expected ErrTimeout while held, got %v", err)
	}
	release()

	release, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release()
}

func TestPGWebhookThenImport(t *testing.T) {
	env := setupPG(t)
	ctx := context.Background()
	cfg := testConfig()
	cfg.DatabaseURL = env.url
	cfg.SourceDatabaseURL = env.url

	if err := Bootstrap(ctx, cfg, env.store); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	handler, err := New(cfg, Deps{
		Source:      env.store,
		Colors:      env.store,
		Destination: env.store,
		Locker:      lock.NewAdvisory(env.pool, cfg.LockKey, cfg.LockWait),
		AuditSink:   audit.NewPGSink(env.pool),
		DB:          env.pool,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("create router: %v", err)
	}
	r := routerEnv{handler: handler, cfg: cfg}

	if rr := r.request(t, http.MethodGet, "/api/health", nil, ""); rr.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rr.Code)
	}
	if rr := r.request(t, http.MethodPost, "/webhook/orders", webhookBody(testToken), ""); rr.Code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr := r.request(t, http.MethodPost, "/api/imports", nil, testToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("import: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	_, rows, records, err := sheet.Records(ctx, env.store, cfg.DestinationSheet)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 destination rows, got %d", len(rows))
	}
	for _, rec := range records {
		if rec.Get(sheet.FieldDeliveryDate) == "" {
			t.Fatalf("expected delivery date on %v", rec.Cells)
		}
	}

	var audited int
	if err := env.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log WHERE action = $1`, audit.ActionImportComplete).Scan(&audited); err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if audited != 1 {
		t.Fatalf("expected one import audit row, got %d", audited)
	}
}
