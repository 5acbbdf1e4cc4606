package sheet

// Field is the logical name of a column, independent of its header label.
type Field string

const (
	FieldOrderDate      Field = "order_date"
	FieldOrderID        Field = "order_id"
	FieldClientName     Field = "client_name"
	FieldPhone          Field = "phone"
	FieldEmail          Field = "email"
	FieldDeliveryDate   Field = "delivery_date"
	FieldDeliveryType   Field = "delivery_type"
	FieldDay            Field = "day"
	FieldDish           Field = "dish"
	FieldQuantity       Field = "qty"
	FieldPrice          Field = "price"
	FieldAmount         Field = "amount"
	FieldFinalAmount    Field = "final_amount"
	FieldPromocode      Field = "promocode"
	FieldDiscountValue  Field = "discount_value"
	FieldDiscountAmount Field = "discount_amount"
	FieldSubtotal       Field = "subtotal"
	FieldDeliveryPrice  Field = "delivery_price"
	FieldStreet         Field = "street"
	FieldHome           Field = "home"
	FieldFlat           Field = "flat"
	FieldPaymentSystem  Field = "payment_system"
	FieldTransactionID  Field = "payment_status_id"
	FieldCalories       Field = "calories"
	FieldOrderTimestamp Field = "order_timestamp"
	FieldImportStatus   Field = "import_status"
)

type Column struct {
	Field Field
	Label string
}

// Columns is the layout the webhook writes. Every sheet in the pipeline is
// addressed by these labels, never by position.
var Columns = []Column{
	{FieldOrderDate, "Дата заказа"},
	{FieldOrderID, "Номер заказа"},
	{FieldClientName, "Клиент"},
	{FieldPhone, "Телефон"},
	{FieldEmail, "Email"},
	{FieldDeliveryDate, "Дата доставки"},
	{FieldDeliveryType, "Тип доставки"},
	{FieldDay, "День према"},
	{FieldDish, "Блюдо"},
	{FieldQuantity, "Кол-во"},
	{FieldPrice, "Цена за шт"},
	{FieldAmount, "Сумма позиции"},
	{FieldFinalAmount, "Итоговая сумма"},
	{FieldPromocode, "Промокод"},
	{FieldDiscountValue, "Размер скидки (%)"},
	{FieldDiscountAmount, "Сумма скидки"},
	{FieldSubtotal, "Сумма до скидки"},
	{FieldDeliveryPrice, "Стоимость доставки"},
	{FieldStreet, "Улица"},
	{FieldHome, "Дом"},
	{FieldFlat, "Квартира"},
	{FieldPaymentSystem, "Система оплаты"},
	{FieldTransactionID, "ID транзакции"},
	{FieldCalories, "Калории"},
	{FieldOrderTimestamp, "Timestamp (служебный)"},
	{FieldImportStatus, "Статус импорта"},
}

const StatusImported = "imported"

// ColorCounter names the persisted counter behind the rotating row colour.
const ColorCounter = "order_color"

var Palette = []string{"#FDEDEC", "#E8F8F5", "#EBF5FB", "#FEF9E7", "#F5EEF8"}

func Labels() []string {
	labels := make([]string, len(Columns))
	for i, col := range Columns {
		labels[i] = col.Label
	}
	return labels
}

func LabelOf(field Field) string {
	for _, col := range Columns {
		if col.Field == field {
			return col.Label
		}
	}
	return ""
}

// PaletteColor maps a counter value onto the palette.
func PaletteColor(index int) string {
	n := len(Palette)
	return Palette[((index%n)+n)%n]
}

// PaletteIndex is the inverse of PaletteColor; -1 when color is not in the palette.
func PaletteIndex(color string) int {
	for i, c := range Palette {
		if c == color {
			return i
		}
	}
	return -1
}
