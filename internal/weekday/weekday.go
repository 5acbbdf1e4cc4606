// Package weekday maps the storefront's day-of-week labels to calendar dates.
package weekday

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Tag int

const (
	None Tag = iota
	Mon
	Tue
	Wed
	Thu
	Fri
	Sat
	Sun
	Unknown
)

// UnknownIndex sorts unknown and missing tags after every real weekday.
const UnknownIndex = 99

var ErrInvalidTag = errors.New("invalid weekday tag")

type InvalidTagError struct {
	Raw string
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("invalid weekday tag %q", e.Raw)
}

func (e *InvalidTagError) Unwrap() error {
	return ErrInvalidTag
}

var labels = map[string]Tag{
	"пн": Mon, "вт": Tue, "ср": Wed, "чт": Thu, "пт": Fri, "сб": Sat, "вс": Sun,
	"понедельник": Mon, "вторник": Tue, "среда": Wed, "четверг": Thu,
	"пятница": Fri, "суббота": Sat, "воскресенье": Sun,
	"mon": Mon, "tue": Tue, "wed": Wed, "thu": Thu, "fri": Fri, "sat": Sat, "sun": Sun,
}

var abbreviations = [...]string{"", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс", ""}

// All lists the known tags in canonical order.
var All = []Tag{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// Parse returns None for blank input and Unknown for text that is not a weekday.
func Parse(raw string) Tag {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return None
	}
	if tag, ok := labels[strings.ToLower(trimmed)]; ok {
		return tag
	}
	return Unknown
}

func (t Tag) Known() bool {
	return t >= Mon && t <= Sun
}

// Index is the canonical sort position, 1 for Monday through 7 for Sunday.
func (t Tag) Index() int {
	if !t.Known() {
		return UnknownIndex
	}
	return int(t)
}

func (t Tag) Weekday() time.Weekday {
	if t == Sun {
		return time.Sunday
	}
	return time.Weekday(t)
}

func (t Tag) String() string {
	if t < None || t > Unknown {
		return ""
	}
	return abbreviations[t]
}

// SortIndex is Parse(raw).Index().
func SortIndex(raw string) int {
	return Parse(raw).Index()
}
