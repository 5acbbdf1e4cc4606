// Package ingest accepts storefront order webhooks and writes their lines to
// the raw log and the working order sheet under an exclusive lock.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealbox/orders-api/internal/audit"
	"github.com/mealbox/orders-api/internal/lock"
	"github.com/mealbox/orders-api/internal/order"
	"github.com/mealbox/orders-api/internal/sheet"
	"github.com/mealbox/orders-api/internal/weekday"
)

var (
	ErrAuth      = errors.New("invalid api key")
	ErrStorage   = errors.New("storage failure")
	ErrMalformed = errors.New("malformed payload")
)

type Status string

const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
	StatusError Status = "error"
)

// Outcome tells the transport what happened without parsing Message.
type Outcome int

const (
	OutcomeWritten Outcome = iota
	OutcomeTest
	OutcomeEmpty
	OutcomeUnauthorized
	OutcomeMalformed
	OutcomeBusy
	OutcomeFailed
)

type Response struct {
	Status  Status  `json:"status"`
	Message string  `json:"message,omitempty"`
	Outcome Outcome `json:"-"`
	Rows    int     `json:"-"`
}

type Verifier interface {
	Verify(token string) bool
}

type Gateway struct {
	Lock         lock.Locker
	Verifier     Verifier
	Store        sheet.Store
	Colors       sheet.Counter
	RawSheet     string
	WorkingSheet string
	Audit        *audit.Logger
	Logger       *slog.Logger
	Location     *time.Location
	Now          func() time.Time
}

// Handle processes one webhook delivery. It never returns an error: every
// failure is audited and turned into a Response with StatusError.
func (g *Gateway) Handle(ctx context.Context, payload []byte) (resp Response) {
	release, err := g.Lock.Acquire(ctx)
	if err != nil {
		g.failure(ctx, "", fmt.Errorf("acquire lock: %w", err))
		outcome := OutcomeFailed
		if errors.Is(err, lock.ErrTimeout) {
			outcome = OutcomeBusy
		}
		return Response{Status: StatusError, Message: err.Error(), Outcome: outcome}
	}
	defer release()

	orderID := ""
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic: %v", p)
			g.failure(ctx, orderID, err)
			resp = errorResponse(err)
		}
	}()

	var p Payload
	if err := json.Unmarshal(payload, &p); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
		g.failure(ctx, "", err)
		return errorResponse(err)
	}
	orderID = strings.TrimSpace(string(p.Payment.OrderID))

	if !g.Verifier.Verify(string(p.APIKey)) {
		g.failure(ctx, orderID, ErrAuth)
		return errorResponse(ErrAuth)
	}
	if p.Test == testMarker {
		return Response{Status: StatusOK, Message: testMarker, Outcome: OutcomeTest}
	}

	now := g.now()
	lines := g.accept(ctx, p, orderID)
	if len(lines) == 0 {
		return Response{Status: StatusEmpty, Outcome: OutcomeEmpty}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return weekday.SortIndex(lines[i].day) < weekday.SortIndex(lines[j].day)
	})

	if err := g.write(ctx, p, orderID, lines, now); err != nil {
		g.failure(ctx, orderID, err)
		return errorResponse(err)
	}
	g.logger().InfoContext(ctx, "webhook_order_written", "order_id", orderID, "rows", len(lines))
	return Response{Status: StatusOK, Outcome: OutcomeWritten, Rows: len(lines)}
}

type acceptedLine struct {
	product  Product
	qty      decimal.Decimal
	day      string
	calories string
}

// accept filters products down to those with a name and a positive
// quantity. Each dropped product is audited.
func (g *Gateway) accept(ctx context.Context, p Payload, orderID string) []acceptedLine {
	lines := make([]acceptedLine, 0, len(p.Payment.Products))
	for _, product := range p.Payment.Products {
		name := string(product.Name)
		var reason string
		qty, ok := order.ParseQuantity(string(product.Quantity))
		switch {
		case name == "":
			reason = fmt.Sprintf("skipped product without a name in order %s", orderID)
		case !ok:
			reason = fmt.Sprintf("skipped product %q with invalid quantity (%s) in order %s", name, product.Quantity, orderID)
		}
		if reason != "" {
			g.logger().WarnContext(ctx, "webhook_rejected_line", "order_id", orderID, "reason", reason)
			if g.Audit != nil {
				_ = g.Audit.Log(ctx, audit.Entry{Action: audit.ActionLineRejected, Message: reason, OrderID: orderID})
			}
			continue
		}
		day, calories := product.Day()
		lines = append(lines, acceptedLine{product: product, qty: qty, day: day, calories: calories})
	}
	return lines
}

func (g *Gateway) write(ctx context.Context, p Payload, orderID string, lines []acceptedLine, now time.Time) error {
	index, err := g.Colors.Current(ctx, sheet.ColorCounter)
	if err != nil {
		return storageError("read colour counter", err)
	}
	color := sheet.PaletteColor(index)

	batches := make([]sheet.Batch, 0, 2)
	for _, name := range []string{g.RawSheet, g.WorkingSheet} {
		header, err := sheet.EnsureHeader(ctx, g.Store, name, sheet.Labels())
		if err != nil {
			return storageError("prepare "+name, err)
		}
		schema := sheet.NewSchema(header)
		rows := make([]sheet.Row, len(lines))
		for i, l := range lines {
			rows[i] = sheet.Row{Cells: schema.Build(rowValues(p, orderID, l, now)), Color: color}
		}
		batches = append(batches, sheet.Batch{Sheet: name, Rows: rows})
	}
	// Raw and working rows land together on a BatchAppender.
	if err := sheet.AppendAll(ctx, g.Store, batches); err != nil {
		return storageError("append order rows", err)
	}

	if _, err := g.Colors.Advance(ctx, sheet.ColorCounter, len(sheet.Palette)); err != nil {
		return storageError("advance colour counter", err)
	}
	return nil
}

func rowValues(p Payload, orderID string, l acceptedLine, now time.Time) map[sheet.Field]string {
	return map[sheet.Field]string{
		sheet.FieldOrderDate:      sheet.FormatTimestamp(now),
		sheet.FieldOrderID:        orderID,
		sheet.FieldClientName:     string(p.Name),
		sheet.FieldPhone:          string(p.Phone),
		sheet.FieldEmail:          string(p.Email),
		sheet.FieldDeliveryType:   string(p.Payment.Delivery),
		sheet.FieldDay:            strings.TrimSpace(l.day),
		sheet.FieldDish:           string(l.product.Name),
		sheet.FieldQuantity:       l.qty.String(),
		sheet.FieldPrice:          orZero(l.product.Price),
		sheet.FieldAmount:         orZero(l.product.Amount),
		sheet.FieldFinalAmount:    orZero(p.Payment.Amount),
		sheet.FieldPromocode:      string(p.Payment.Promocode),
		sheet.FieldDiscountValue:  string(p.Payment.DiscountValue),
		sheet.FieldDiscountAmount: orZero(p.Payment.Discount),
		sheet.FieldSubtotal:       orZero(p.Payment.Subtotal),
		sheet.FieldDeliveryPrice:  orZero(p.Payment.DeliveryPrice),
		sheet.FieldStreet:         string(p.Street),
		sheet.FieldHome:           string(p.Home),
		sheet.FieldFlat:           string(p.Flat),
		sheet.FieldPaymentSystem:  string(p.Payment.System),
		sheet.FieldTransactionID:  string(p.Payment.TransactionID),
		sheet.FieldCalories:       strings.TrimSpace(l.calories),
		sheet.FieldOrderTimestamp: strconv.FormatInt(now.UnixMilli(), 10),
	}
}

func orZero(t Text) string {
	if t == "" {
		return "0"
	}
	return string(t)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

func errorResponse(err error) Response {
	outcome := OutcomeFailed
	switch {
	case errors.Is(err, ErrAuth):
		outcome = OutcomeUnauthorized
	case errors.Is(err, ErrMalformed):
		outcome = OutcomeMalformed
	}
	return Response{Status: StatusError, Message: err.Error(), Outcome: outcome}
}

func (g *Gateway) failure(ctx context.Context, orderID string, err error) {
	g.logger().ErrorContext(ctx, "webhook_failed", "order_id", orderID, "error", err)
	if g.Audit == nil {
		return
	}
	_ = g.Audit.Log(ctx, audit.Entry{Action: audit.ActionWebhookFailed, Message: err.Error(), OrderID: orderID})
}

func (g *Gateway) now() time.Time {
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}
	if g.Now != nil {
		return g.Now().In(loc)
	}
	return time.Now().In(loc)
}

func (g *Gateway) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
