package plan

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealbox/orders-api/internal/order"
	"github.com/mealbox/orders-api/internal/sheet"
	"github.com/mealbox/orders-api/internal/weekday"
)

const (
	topDishes           = 10
	unspecifiedDelivery = "(не указан)"
)

type DishStat struct {
	Dish     string `json:"dish"`
	Orders   int    `json:"orders"`
	Quantity decimal.Decimal `json:"quantity"`
}

type WeekdayCount struct {
	Day   string `json:"day"`
	Lines int    `json:"lines"`
}

type PromoStat struct {
	Code     string          `json:"code"`
	Uses     int             `json:"uses"`
	Discount decimal.Decimal `json:"discount"`
}

type DeliveryCount struct {
	Type   string `json:"type"`
	Orders int    `json:"orders"`
}

type Report struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	Orders        int             `json:"orders"`
	Revenue       decimal.Decimal `json:"revenue"`
	AverageCheck  decimal.Decimal `json:"averageCheck"`
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	TopDishes     []DishStat      `json:"topDishes"`
	Weekdays      []WeekdayCount  `json:"weekdays"`
	Promocodes    []PromoStat     `json:"promocodes"`
	DeliveryTypes []DeliveryCount `json:"deliveryTypes"`
}

// InPeriod keeps records whose order date falls between the start of from's
// day and the end of to's day.
func InPeriod(records []sheet.Record, from, to time.Time, loc *time.Location) []sheet.Record {
	start := startOfDay(from, loc)
	end := startOfDay(to, loc).AddDate(0, 0, 1)
	kept := make([]sheet.Record, 0, len(records))
	for _, rec := range records {
		date, ok := sheet.ParseDate(rec.Get(sheet.FieldOrderDate), loc)
		if !ok || date.Before(start) || !date.Before(end) {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

// Summarize builds the period report over records already filtered with
// InPeriod. Order-level figures count each order once.
func Summarize(records []sheet.Record, from, to time.Time, loc *time.Location) Report {
	orders := order.Aggregate(records, loc)
	r := Report{
		From:          startOfDay(from, loc),
		To:            startOfDay(to, loc),
		Orders:        orders.Len(),
		Revenue:       decimal.Zero,
		AverageCheck:  decimal.Zero,
		TotalDiscount: decimal.Zero,
	}

	promos := map[string]*PromoStat{}
	var promoOrder []string
	deliveries := map[string]int{}
	var deliveryOrder []string

	orders.Each(func(o *order.Order) {
		r.Revenue = r.Revenue.Add(o.Financials.FinalAmount)
		r.TotalDiscount = r.TotalDiscount.Add(o.Financials.DiscountAmount)

		if code := o.Financials.Promocode; code != "" {
			stat, ok := promos[code]
			if !ok {
				stat = &PromoStat{Code: code, Discount: decimal.Zero}
				promos[code] = stat
				promoOrder = append(promoOrder, code)
			}
			stat.Uses++
			stat.Discount = stat.Discount.Add(o.Financials.DiscountAmount)
		}

		kind := o.DeliveryType
		if kind == "" {
			kind = unspecifiedDelivery
		}
		if _, ok := deliveries[kind]; !ok {
			deliveryOrder = append(deliveryOrder, kind)
		}
		deliveries[kind]++
	})
	if r.Orders > 0 {
		r.AverageCheck = r.Revenue.Div(decimal.NewFromInt(int64(r.Orders))).Round(0)
	}

	r.TopDishes = dishStats(records)
	r.Weekdays = weekdayCounts(records)

	r.Promocodes = make([]PromoStat, len(promoOrder))
	for i, code := range promoOrder {
		r.Promocodes[i] = *promos[code]
	}
	sort.SliceStable(r.Promocodes, func(i, j int) bool { return r.Promocodes[i].Uses > r.Promocodes[j].Uses })

	r.DeliveryTypes = make([]DeliveryCount, len(deliveryOrder))
	for i, kind := range deliveryOrder {
		r.DeliveryTypes[i] = DeliveryCount{Type: kind, Orders: deliveries[kind]}
	}
	sort.SliceStable(r.DeliveryTypes, func(i, j int) bool { return r.DeliveryTypes[i].Orders > r.DeliveryTypes[j].Orders })
	return r
}

func dishStats(records []sheet.Record) []DishStat {
	type acc struct {
		orders map[string]bool
		qty    decimal.Decimal
	}
	stats := map[string]*acc{}
	var seen []string
	for _, rec := range records {
		dish := rec.Get(sheet.FieldDish)
		if dish == "" {
			continue
		}
		a, ok := stats[dish]
		if !ok {
			a = &acc{orders: map[string]bool{}, qty: decimal.Zero}
			stats[dish] = a
			seen = append(seen, dish)
		}
		a.orders[rec.Get(sheet.FieldOrderID)] = true
		if qty, ok := order.ParseQuantity(rec.Get(sheet.FieldQuantity)); ok {
			a.qty = a.qty.Add(qty)
		}
	}

	out := make([]DishStat, len(seen))
	for i, dish := range seen {
		out[i] = DishStat{Dish: dish, Orders: len(stats[dish].orders), Quantity: stats[dish].qty}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity.GreaterThan(out[j].Quantity) })
	if len(out) > topDishes {
		out = out[:topDishes]
	}
	return out
}

func weekdayCounts(records []sheet.Record) []WeekdayCount {
	counts := map[weekday.Tag]int{}
	for _, rec := range records {
		if tag := weekday.Parse(rec.Get(sheet.FieldDay)); tag.Known() {
			counts[tag]++
		}
	}
	out := make([]WeekdayCount, len(weekday.All))
	for i, tag := range weekday.All {
		out[i] = WeekdayCount{Day: tag.String(), Lines: counts[tag]}
	}
	return out
}

// startOfDay keeps t's calendar date and moves it to midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
