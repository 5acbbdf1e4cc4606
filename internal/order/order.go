// Package order folds flat sheet rows into orders with their lines.
package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealbox/orders-api/internal/sheet"
)

type Client struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

type Financials struct {
	FinalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	DiscountValue  string
	Promocode      string
	Subtotal       decimal.Decimal
	DeliveryPrice  decimal.Decimal
}

type Line struct {
	// Row is the index of the source record within the aggregated slice.
	Row          int
	Dish         string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Amount       decimal.Decimal
	Day          string
	Calories     string
	DeliveryDate *time.Time
}

type Order struct {
	ID           string
	Date         time.Time
	Client       Client
	DeliveryType string
	Financials   Financials
	Lines        []Line
}

// Set is an insertion-ordered collection of orders keyed by id.
type Set struct {
	ids    []string
	orders map[string]*Order
}

func newSet() *Set {
	return &Set{orders: map[string]*Order{}}
}

func (s *Set) Len() int {
	return len(s.ids)
}

func (s *Set) Get(id string) (*Order, bool) {
	o, ok := s.orders[id]
	return o, ok
}

// Each visits orders in the order they were first seen.
func (s *Set) Each(fn func(*Order)) {
	for _, id := range s.ids {
		fn(s.orders[id])
	}
}

// Aggregate groups records by order id. Records without an order id are
// dropped. Each record contributes one line, in arrival order.
//
// Order-level fields are expected to be identical on every row of an order;
// they are taken from the first row seen and later rows are not compared.
func Aggregate(records []sheet.Record, loc *time.Location) *Set {
	set := newSet()
	for i, rec := range records {
		id := rec.Get(sheet.FieldOrderID)
		if id == "" {
			continue
		}
		o, ok := set.orders[id]
		if !ok {
			o = newOrder(id, rec, loc)
			set.orders[id] = o
			set.ids = append(set.ids, id)
		}
		o.Lines = append(o.Lines, newLine(i, rec, loc))
	}
	return set
}

func newOrder(id string, rec sheet.Record, loc *time.Location) *Order {
	date, _ := sheet.ParseDate(rec.Get(sheet.FieldOrderDate), loc)
	return &Order{
		ID:   id,
		Date: date,
		Client: Client{
			Name:    rec.Get(sheet.FieldClientName),
			Phone:   rec.Get(sheet.FieldPhone),
			Email:   rec.Get(sheet.FieldEmail),
			Address: joinAddress(rec.Get(sheet.FieldStreet), rec.Get(sheet.FieldHome), rec.Get(sheet.FieldFlat)),
		},
		DeliveryType: rec.Get(sheet.FieldDeliveryType),
		Financials: Financials{
			FinalAmount:    ParseAmount(rec.Get(sheet.FieldFinalAmount)),
			DiscountAmount: ParseAmount(rec.Get(sheet.FieldDiscountAmount)),
			DiscountValue:  rec.Get(sheet.FieldDiscountValue),
			Promocode:      rec.Get(sheet.FieldPromocode),
			Subtotal:       ParseAmount(rec.Get(sheet.FieldSubtotal)),
			DeliveryPrice:  ParseAmount(rec.Get(sheet.FieldDeliveryPrice)),
		},
	}
}

func newLine(row int, rec sheet.Record, loc *time.Location) Line {
	qty, _ := ParseQuantity(rec.Get(sheet.FieldQuantity))
	line := Line{
		Row:       row,
		Dish:      rec.Get(sheet.FieldDish),
		Quantity:  qty,
		UnitPrice: ParseAmount(rec.Get(sheet.FieldPrice)),
		Amount:    ParseAmount(rec.Get(sheet.FieldAmount)),
		Day:       rec.Get(sheet.FieldDay),
		Calories:  rec.Get(sheet.FieldCalories),
	}
	if date, ok := sheet.ParseDate(rec.Get(sheet.FieldDeliveryDate), loc); ok {
		line.DeliveryDate = &date
	}
	return line
}

func joinAddress(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
