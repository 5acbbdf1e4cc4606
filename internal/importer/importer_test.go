package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/sheet"
)

const (
	sourceSheet = "Orders"
	destSheet   = "Заказы"
)

var testNow = time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

type line struct {
	orderID, kind, day, dish, qty, date, status string
}

func seedSource(t *testing.T, store *sheet.MemoryStore, header []string, lines ...line) {
	t.Helper()
	ctx := context.Background()
	if err := store.SetHeader(ctx, sourceSheet, header); err != nil {
		t.Fatalf("set header: %v", err)
	}
	schema := sheet.NewSchema(header)
	rows := make([]sheet.Row, len(lines))
	for i, l := range lines {
		rows[i] = sheet.Row{Cells: schema.Build(map[sheet.Field]string{
			sheet.FieldOrderDate:    "04.03.2026 10:00:00",
			sheet.FieldOrderID:      l.orderID,
			sheet.FieldClientName:   "Анна",
			sheet.FieldDeliveryType: l.kind,
			sheet.FieldDay:          l.day,
			sheet.FieldDish:         l.dish,
			sheet.FieldQuantity:     l.qty,
			sheet.FieldDeliveryDate: l.date,
			sheet.FieldImportStatus: l.status,
		})}
	}
	if err := store.Append(ctx, sourceSheet, rows); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func newReconciler(src, dst sheet.Store, sink *audit.MemorySink) *Reconciler {
	return &Reconciler{
		Source:           src,
		SourceSheet:      sourceSheet,
		Destination:      dst,
		DestinationSheet: destSheet,
		Audit:            audit.NewLogger(sink, nil),
		Location:         time.UTC,
		Now:              func() time.Time { return testNow },
	}
}

func readRecords(t *testing.T, store sheet.Store, name string) ([]sheet.Row, []sheet.Record) {
	t.Helper()
	_, rows, records, err := sheet.Records(context.Background(), store, name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return rows, records
}

func TestRunImportsPendingRows(t *testing.T) {
	store := sheet.NewMemoryStore()
	sink := audit.NewMemorySink()
	seedSource(t, store, sheet.Labels(),
		line{orderID: "100", kind: "Ежедневная", day: "Пн", dish: "Борщ", qty: "2"},
		line{orderID: "100", kind: "Ежедневная", day: "Ср", dish: "Плов", qty: "1"},
		line{orderID: "101", kind: "Единоразовая", day: "Пт", dish: "Салат", qty: "abc"},
		line{orderID: "102", kind: "Единоразовая", day: "Пт", dish: "Суп", qty: "3"},
		line{orderID: "099", kind: "Ежедневная", day: "Пн", dish: "Каша", qty: "1", status: "imported"},
	)

	result, err := newReconciler(store, store, sink).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Imported != 3 || result.Orders != 2 || result.DatesResolved != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Report.Count != 1 || result.Report.Rows[0].Row != 4 || result.Report.Rows[0].OrderID != "101" {
		t.Fatalf("unexpected report %+v", result.Report)
	}
	if sink.Count(audit.ActionRowRejected) != 1 || sink.Count(audit.ActionImportComplete) != 1 {
		t.Fatalf("unexpected audit entries %+v", sink.Entries())
	}

	header, _ := store.Header(context.Background(), destSheet)
	if len(header) != len(sheet.Columns)-1 {
		t.Fatalf("expected destination header without status column, got %d labels", len(header))
	}
	if sheet.NewSchema(header).Has(sheet.FieldImportStatus) {
		t.Fatal("destination header must not carry the import status column")
	}

	rows, records := readRecords(t, store, destSheet)
	wantDates := []string{"09.03.2026", "11.03.2026", "06.03.2026"}
	wantColors := []string{sheet.Palette[0], sheet.Palette[0], sheet.Palette[1]}
	for i, rec := range records {
		if got := rec.Get(sheet.FieldDeliveryDate); got != wantDates[i] {
			t.Fatalf("row %d: expected delivery date %s, got %s", i, wantDates[i], got)
		}
		if rows[i].Color != wantColors[i] {
			t.Fatalf("row %d: expected colour %s, got %s", i, wantColors[i], rows[i].Color)
		}
	}

	_, source := readRecords(t, store, sourceSheet)
	for i, rec := range source {
		want := i != 2
		if IsImported(rec) != want {
			t.Fatalf("source row %d: imported=%v, want %v", i, IsImported(rec), want)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedSource(t, store, sheet.Labels(),
		line{orderID: "100", kind: "Ежедневная", day: "Пн", dish: "Борщ", qty: "2"},
	)
	r := newReconciler(store, store, audit.NewMemorySink())

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Imported != 0 {
		t.Fatalf("expected nothing imported on second run, got %d", second.Imported)
	}
	rows, _ := readRecords(t, store, destSheet)
	if len(rows) != 1 {
		t.Fatalf("expected 1 destination row, got %d", len(rows))
	}
}

func TestRunImportsFractionalQuantity(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedSource(t, store, sheet.Labels(),
		line{orderID: "100", kind: "Единоразовая", day: "Пт", dish: "Суп", qty: "1.5"},
	)

	result, err := newReconciler(store, store, audit.NewMemorySink()).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Imported != 1 || result.Report.Count != 0 {
		t.Fatalf("fractional quantity must import, got %+v", result)
	}
	_, records := readRecords(t, store, destSheet)
	if got := records[0].Get(sheet.FieldQuantity); got != "1.5" {
		t.Fatalf("expected quantity 1.5, got %q", got)
	}
}

func TestRunFollowsDestinationColumnOrder(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedSource(t, store, sheet.Labels(),
		line{orderID: "100", kind: "Ежедневная", day: "Вт", dish: "Борщ", qty: "2", date: "10.03.2026"},
	)
	destHeader := []string{"Блюдо", "Номер заказа", "Комментарий", "Дата доставки"}
	if err := store.SetHeader(context.Background(), destSheet, destHeader); err != nil {
		t.Fatalf("set header: %v", err)
	}

	result, err := newReconciler(store, store, audit.NewMemorySink()).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.DatesResolved != 0 {
		t.Fatalf("explicit delivery date must be kept, resolved %d", result.DatesResolved)
	}
	rows, _ := readRecords(t, store, destSheet)
	want := []string{"Борщ", "100", "", "10.03.2026"}
	for i := range want {
		if rows[0].Cells[i] != want[i] {
			t.Fatalf("cell %d: expected %q, got %q", i, want[i], rows[0].Cells[i])
		}
	}
}

func TestRunContinuesColourFromDestination(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedSource(t, store, sheet.Labels(),
		line{orderID: "100", kind: "Ежедневная", day: "Пн", dish: "Борщ", qty: "1"},
		line{orderID: "101", kind: "Ежедневная", day: "Пн", dish: "Плов", qty: "1"},
	)
	r := newReconciler(store, store, audit.NewMemorySink())
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	seedMore := sheet.NewSchema(sheet.Labels()).Build(map[sheet.Field]string{
		sheet.FieldOrderID: "102", sheet.FieldDish: "Суп", sheet.FieldQuantity: "1",
	})
	if err := store.Append(context.Background(), sourceSheet, []sheet.Row{{Cells: seedMore}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	rows, _ := readRecords(t, store, destSheet)
	want := []string{sheet.Palette[0], sheet.Palette[1], sheet.Palette[2]}
	for i, row := range rows {
		if row.Color != want[i] {
			t.Fatalf("row %d: expected colour %s, got %s", i, want[i], row.Color)
		}
	}
}

func TestRunRejectsSourceWithoutRequiredColumns(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedSource(t, store, []string{"Номер заказа", "Блюдо"},
		line{orderID: "100", dish: "Борщ"},
	)
	_, err := newReconciler(store, store, audit.NewMemorySink()).Run(context.Background())
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

type failingStore struct {
	sheet.Store
	failAppend   bool
	failSetCells bool
}

var errInjected = errors.New("injected failure")

func (f *failingStore) Append(ctx context.Context, name string, rows []sheet.Row) error {
	if f.failAppend {
		return errInjected
	}
	return f.Store.Append(ctx, name, rows)
}

func (f *failingStore) SetCells(ctx context.Context, name string, updates []sheet.CellUpdate) error {
	if f.failSetCells {
		return errInjected
	}
	return f.Store.SetCells(ctx, name, updates)
}

func TestRunAppendFailureMarksNothing(t *testing.T) {
	src := sheet.NewMemoryStore()
	seedSource(t, src, sheet.Labels(),
		line{orderID: "100", kind: "Ежедневная", day: "Пн", dish: "Борщ", qty: "2"},
	)
	dst := &failingStore{Store: sheet.NewMemoryStore(), failAppend: true}
	sink := audit.NewMemorySink()

	_, err := newReconciler(src, dst, sink).Run(context.Background())
	var storeErr *StorageError
	if !errors.As(err, &storeErr) || storeErr.Appended != 0 || !errors.Is(err, errInjected) {
		t.Fatalf("expected storage error with nothing appended, got %v", err)
	}
	_, records := readRecords(t, src, sourceSheet)
	if IsImported(records[0]) {
		t.Fatal("source row must stay pending after failed append")
	}
	if sink.Count(audit.ActionImportFailed) != 1 {
		t.Fatalf("expected failure to be audited, got %+v", sink.Entries())
	}
}

func TestRunMarkFailureReportsAppendedRows(t *testing.T) {
	mem := sheet.NewMemoryStore()
	seedSource(t, mem, sheet.Labels(),
		line{orderID: "100", kind: "Ежедневная", day: "Пн", dish: "Борщ", qty: "2"},
		line{orderID: "100", kind: "Ежедневная", day: "Вт", dish: "Плов", qty: "1"},
	)
	src := &failingStore{Store: mem, failSetCells: true}
	dst := sheet.NewMemoryStore()

	_, err := newReconciler(src, dst, audit.NewMemorySink()).Run(context.Background())
	var storeErr *StorageError
	if !errors.As(err, &storeErr) || storeErr.Appended != 2 {
		t.Fatalf("expected storage error after 2 appended rows, got %v", err)
	}
	rows, _ := readRecords(t, dst, destSheet)
	if len(rows) != 2 {
		t.Fatalf("expected appended rows to stay, got %d", len(rows))
	}
}

func seedDestination(t *testing.T, store *sheet.MemoryStore, lines ...line) {
	t.Helper()
	header := sheet.NewSchema(sheet.Labels()).Without(sheet.FieldImportStatus)
	ctx := context.Background()
	if err := store.SetHeader(ctx, destSheet, header); err != nil {
		t.Fatalf("set header: %v", err)
	}
	schema := sheet.NewSchema(header)
	rows := make([]sheet.Row, len(lines))
	for i, l := range lines {
		rows[i] = sheet.Row{Cells: schema.Build(map[sheet.Field]string{
			sheet.FieldOrderDate:    "04.03.2026 10:00:00",
			sheet.FieldOrderID:      l.orderID,
			sheet.FieldDeliveryType: l.kind,
			sheet.FieldDay:          l.day,
			sheet.FieldDish:         l.dish,
			sheet.FieldQuantity:     l.qty,
			sheet.FieldDeliveryDate: l.date,
		})}
	}
	if err := store.Append(ctx, destSheet, rows); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func newFiller(store sheet.Store) *Filler {
	return &Filler{
		Store:    store,
		Sheet:    destSheet,
		Audit:    audit.NewLogger(audit.NewMemorySink(), nil),
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	}
}

func TestFillCompletesPairedOrder(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedDestination(t, store,
		line{orderID: "200", kind: "Раз в два дня", day: "Пн", dish: "Борщ", qty: "1", date: "09.03.2026"},
		line{orderID: "200", kind: "Раз в два дня", day: "Ср", dish: "Плов", qty: "1"},
		line{orderID: "200", kind: "Раз в два дня", day: "Пт", dish: "Суп", qty: "1"},
		line{orderID: "201", kind: "Ежедневная", day: "Чт", dish: "Каша", qty: "1"},
	)

	result, err := newFiller(store).Fill(context.Background(), "200")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if result.Filled != 2 || result.Orders != 1 || result.AlreadyFilled {
		t.Fatalf("unexpected result %+v", result)
	}
	_, records := readRecords(t, store, destSheet)
	want := []string{"09.03.2026", "09.03.2026", "06.03.2026", ""}
	for i, rec := range records {
		if got := rec.Get(sheet.FieldDeliveryDate); got != want[i] {
			t.Fatalf("row %d: expected %q, got %q", i, want[i], got)
		}
	}

	again, err := newFiller(store).Fill(context.Background(), "200")
	if err != nil {
		t.Fatalf("second fill: %v", err)
	}
	if !again.AlreadyFilled || again.Filled != 0 {
		t.Fatalf("expected order to be already filled, got %+v", again)
	}
}

func TestFillAllOrders(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedDestination(t, store,
		line{orderID: "200", kind: "Единоразовая", day: "Пт", dish: "Борщ", qty: "1"},
		line{orderID: "201", kind: "Ежедневная", day: "Чт", dish: "Каша", qty: "1"},
		line{orderID: "202", kind: "Ежедневная", day: "", dish: "Хлеб", qty: "1"},
	)

	result, err := newFiller(store).Fill(context.Background(), "")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if result.Filled != 2 || result.Orders != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestFillUnknownOrder(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedDestination(t, store,
		line{orderID: "200", kind: "Ежедневная", day: "Пн", dish: "Борщ", qty: "1"},
	)
	if _, err := newFiller(store).Fill(context.Background(), "999"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCleanupDeletesImportedRows(t *testing.T) {
	store := sheet.NewMemoryStore()
	seedSource(t, store, sheet.Labels(),
		line{orderID: "100", dish: "Борщ", qty: "1", status: "imported"},
		line{orderID: "101", dish: "Плов", qty: "1"},
		line{orderID: "102", dish: "Суп", qty: "1", status: "Imported"},
	)
	sink := audit.NewMemorySink()
	c := &Cleaner{Store: store, Sheet: sourceSheet, Audit: audit.NewLogger(sink, nil)}

	deleted, err := c.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted rows, got %d", deleted)
	}
	_, records := readRecords(t, store, sourceSheet)
	if len(records) != 1 || records[0].Get(sheet.FieldOrderID) != "101" {
		t.Fatalf("expected only pending row to remain, got %d rows", len(records))
	}
	if sink.Count(audit.ActionCleanup) != 1 {
		t.Fatal("expected cleanup to be audited")
	}
}
