// Package plan derives the kitchen's cooking plan and period sales report
// from sheet rows. It produces data only; presentation is up to callers.
package plan

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealbox/orders-api/internal/order"
	"github.com/mealbox/orders-api/internal/sheet"
)

type DishQuantity struct {
	Dish     string          `json:"dish"`
	Quantity decimal.Decimal `json:"quantity"`
}

type Day struct {
	Date   time.Time      `json:"date"`
	Dishes []DishQuantity `json:"dishes"`
}

type Plan struct {
	Days    []Day          `json:"days"`
	Undated []DishQuantity `json:"undated"`
}

// CookingPlan sums quantities per delivery date and dish. Rows without a dish
// or a positive quantity are ignored; rows without a readable delivery date
// go to Undated. Days ascend; dishes keep first-seen order within a day.
func CookingPlan(records []sheet.Record, loc *time.Location) Plan {
	byDay := map[time.Time]*tally{}
	undated := newTally()

	for _, rec := range records {
		dish := rec.Get(sheet.FieldDish)
		qty, ok := order.ParseQuantity(rec.Get(sheet.FieldQuantity))
		if dish == "" || !ok {
			continue
		}
		date, ok := sheet.ParseDate(rec.Get(sheet.FieldDeliveryDate), loc)
		if !ok {
			undated.add(dish, qty)
			continue
		}
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		t, exists := byDay[day]
		if !exists {
			t = newTally()
			byDay[day] = t
		}
		t.add(dish, qty)
	}

	p := Plan{Days: make([]Day, 0, len(byDay)), Undated: undated.list()}
	for day, t := range byDay {
		p.Days = append(p.Days, Day{Date: day, Dishes: t.list()})
	}
	sort.Slice(p.Days, func(i, j int) bool { return p.Days[i].Date.Before(p.Days[j].Date) })
	return p
}

type tally struct {
	order []string
	qty   map[string]decimal.Decimal
}

func newTally() *tally {
	return &tally{qty: map[string]decimal.Decimal{}}
}

func (t *tally) add(dish string, qty decimal.Decimal) {
	if _, ok := t.qty[dish]; !ok {
		t.order = append(t.order, dish)
	}
	t.qty[dish] = t.qty[dish].Add(qty)
}

func (t *tally) list() []DishQuantity {
	out := make([]DishQuantity, len(t.order))
	for i, dish := range t.order {
		out[i] = DishQuantity{Dish: dish, Quantity: t.qty[dish]}
	}
	return out
}
