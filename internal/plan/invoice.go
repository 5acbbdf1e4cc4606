package plan

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mealbox/orders-api/internal/order"
	"github.com/mealbox/orders-api/internal/sheet"
)

type InvoiceItem struct {
	Dish      string          `json:"dish"`
	Calories  string          `json:"calories"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Amount    decimal.Decimal `json:"amount"`
}

// InvoiceDelivery groups the items of one delivery date. Date is nil for
// lines that have no delivery date yet.
type InvoiceDelivery struct {
	Date        *time.Time      `json:"date"`
	Items       []InvoiceItem   `json:"items"`
	DishesTotal decimal.Decimal `json:"dishesTotal"`
}

type InvoiceClient struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type Invoice struct {
	OrderID        string            `json:"orderId"`
	Client         InvoiceClient     `json:"client"`
	Promocode      string            `json:"promocode"`
	DiscountValue  string            `json:"discountValue"`
	DiscountAmount decimal.Decimal   `json:"discountAmount"`
	DeliveryPrice  decimal.Decimal   `json:"deliveryPrice"`
	Deliveries     []InvoiceDelivery `json:"deliveries"`
	DishesTotal    decimal.Decimal   `json:"dishesTotal"`
	Total          decimal.Decimal   `json:"total"`
}

// BuildInvoice collects one order's lines by delivery date. Dated deliveries
// ascend and the undated group, if any, comes last. Total is the dishes total
// less the discount plus the delivery price.
func BuildInvoice(records []sheet.Record, orderID string, loc *time.Location) (Invoice, bool) {
	o, ok := order.Aggregate(records, loc).Get(orderID)
	if !ok {
		return Invoice{}, false
	}

	inv := Invoice{
		OrderID:        o.ID,
		Client:         InvoiceClient(o.Client),
		Promocode:      o.Financials.Promocode,
		DiscountValue:  o.Financials.DiscountValue,
		DiscountAmount: o.Financials.DiscountAmount,
		DeliveryPrice:  o.Financials.DeliveryPrice,
		Deliveries:     []InvoiceDelivery{},
		DishesTotal:    decimal.Zero,
	}

	byDay := map[time.Time]*InvoiceDelivery{}
	var undated *InvoiceDelivery
	for _, line := range o.Lines {
		if line.Dish == "" || !line.Quantity.IsPositive() {
			continue
		}
		var group *InvoiceDelivery
		if line.DeliveryDate == nil {
			if undated == nil {
				undated = &InvoiceDelivery{DishesTotal: decimal.Zero}
			}
			group = undated
		} else {
			day := startOfDay(*line.DeliveryDate, loc)
			group = byDay[day]
			if group == nil {
				group = &InvoiceDelivery{Date: &day, DishesTotal: decimal.Zero}
				byDay[day] = group
			}
		}

		item := invoiceItem(line)
		group.Items = append(group.Items, item)
		group.DishesTotal = group.DishesTotal.Add(item.Amount)
		inv.DishesTotal = inv.DishesTotal.Add(item.Amount)
	}

	for _, group := range byDay {
		inv.Deliveries = append(inv.Deliveries, *group)
	}
	sort.Slice(inv.Deliveries, func(i, j int) bool {
		return inv.Deliveries[i].Date.Before(*inv.Deliveries[j].Date)
	})
	if undated != nil {
		inv.Deliveries = append(inv.Deliveries, *undated)
	}

	inv.Total = inv.DishesTotal.Sub(inv.DiscountAmount).Add(inv.DeliveryPrice)
	return inv, true
}

func invoiceItem(line order.Line) InvoiceItem {
	item := InvoiceItem{
		Dish:      line.Dish,
		Calories:  line.Calories,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
		Amount:    line.Amount,
	}
	if item.Amount.IsZero() {
		item.Amount = item.UnitPrice.Mul(line.Quantity)
	}
	if item.UnitPrice.IsZero() {
		item.UnitPrice = item.Amount.Div(line.Quantity).Round(2)
	}
	return item
}
