package schedule

import "strings"

type DeliveryType string

const (
	Daily        DeliveryType = "daily"
	EveryTwoDays DeliveryType = "every_two_days"
	OneTime      DeliveryType = "one_time"
	Unknown      DeliveryType = "unknown"
)

// ParseDeliveryType matches the storefront's free-text delivery option by
// substring. Text that matches nothing yields Unknown.
func ParseDeliveryType(raw string) DeliveryType {
	text := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case text == "":
		return Unknown
	case strings.Contains(text, "ежедневн"):
		return Daily
	case strings.Contains(text, "раз в два дня"), strings.Contains(text, "два дня"):
		return EveryTwoDays
	case strings.Contains(text, "единоразов"):
		return OneTime
	default:
		return Unknown
	}
}
