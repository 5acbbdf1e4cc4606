package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const (
	optionDay      = "День приема"
	optionCalories = "Калории"
	testMarker     = "test"
)

// Payload is the storefront's order webhook body. Every scalar is Text so a
// field sent with an unexpected JSON type never fails the whole order.
type Payload struct {
	APIKey   Text    `json:"apiKey"`
	Test     Text    `json:"test"`
	Name     Text    `json:"name"`
	Phone    Text    `json:"phone"`
	Email    Text    `json:"email"`
	Street   Text    `json:"street"`
	Home     Text    `json:"home"`
	Flat     Text    `json:"flat"`
	FormName Text    `json:"formname"`
	Payment  Payment `json:"payment"`
}

type Payment struct {
	OrderID       Text      `json:"orderid"`
	Amount        Text      `json:"amount"`
	Promocode     Text      `json:"promocode"`
	DiscountValue Text      `json:"discountvalue"`
	Discount      Text      `json:"discount"`
	Subtotal      Text      `json:"subtotal"`
	Delivery      Text      `json:"delivery"`
	DeliveryPrice Text      `json:"delivery_price"`
	System        Text      `json:"sys"`
	TransactionID Text      `json:"systranid"`
	Products      []Product `json:"products"`
}

type Product struct {
	Name     Text     `json:"name"`
	Quantity Text     `json:"quantity"`
	Price    Text     `json:"price"`
	Amount   Text     `json:"amount"`
	Options  []Option `json:"options"`
}

type Option struct {
	Option  Text `json:"option"`
	Variant Text `json:"variant"`
}

// Day returns the weekday tag and calorie variant chosen for the product.
func (p Product) Day() (day, calories string) {
	for _, opt := range p.Options {
		switch string(opt.Option) {
		case optionDay:
			day = string(opt.Variant)
		case optionCalories:
			calories = string(opt.Variant)
		}
	}
	return day, calories
}

// Text accepts any JSON value and keeps its textual form: strings are
// trimmed, numbers keep their literal, booleans become "true"/"false", null
// is empty and objects or arrays keep their raw JSON.
// The storefront sends numeric fields either way depending on the form.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
	case data[0] == '{' || data[0] == '[':
		*t = Text(data)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*t = Text(n.String())
			return nil
		}
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(b))
	}
	return nil
}
