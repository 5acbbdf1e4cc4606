// Package schedule assigns delivery dates to the lines of one order according
// to the order's delivery type.
package schedule

import (
	"sort"
	"time"

	"github.com/mealbox/orders-api/internal/order"
	"github.com/mealbox/orders-api/internal/weekday"
)

// Resolve returns the delivery date for each line that should receive one,
// keyed by Line.Row. Lines that already carry a date and lines without a
// recognised weekday tag are never part of the result.
//
// Every-two-days pairing and one-time selection consider all tagged lines of
// the order, including those already dated, so a partly filled order is
// completed with the same grouping it was first resolved with.
func Resolve(lines []order.Line, orderDate time.Time, kind DeliveryType) map[int]time.Time {
	resolved := map[int]time.Time{}

	tagged := make([]taggedLine, 0, len(lines))
	for _, line := range lines {
		tag := weekday.Parse(line.Day)
		if !tag.Known() {
			continue
		}
		tagged = append(tagged, taggedLine{line: line, tag: tag})
	}
	if len(tagged) == 0 {
		return resolved
	}

	var dateByTag map[weekday.Tag]time.Time
	switch kind {
	case Daily:
		dateByTag = dailyDates(tagged, orderDate)
	case EveryTwoDays:
		dateByTag = pairedDates(tagged, orderDate)
	case OneTime:
		dateByTag = singleDate(tagged, orderDate)
	default:
		return resolved
	}

	for _, tl := range tagged {
		if tl.line.DeliveryDate != nil {
			continue
		}
		if date, ok := dateByTag[tl.tag]; ok {
			resolved[tl.line.Row] = date
		}
	}
	return resolved
}

type taggedLine struct {
	line order.Line
	tag  weekday.Tag
}

func dailyDates(tagged []taggedLine, orderDate time.Time) map[weekday.Tag]time.Time {
	dates := map[weekday.Tag]time.Time{}
	for _, tag := range distinctTags(tagged) {
		dates[tag] = next(tag, orderDate)
	}
	return dates
}

func pairedDates(tagged []taggedLine, orderDate time.Time) map[weekday.Tag]time.Time {
	dates := map[weekday.Tag]time.Time{}
	tags := distinctTags(tagged)
	for i := 0; i < len(tags); i += 2 {
		date := next(tags[i], orderDate)
		dates[tags[i]] = date
		if i+1 < len(tags) {
			dates[tags[i+1]] = date
		}
	}
	return dates
}

func singleDate(tagged []taggedLine, orderDate time.Time) map[weekday.Tag]time.Time {
	tags := distinctTags(tagged)
	date := next(tags[0], orderDate)

	dates := make(map[weekday.Tag]time.Time, len(tags))
	for _, tag := range tags {
		dates[tag] = date
	}
	return dates
}

// distinctTags returns the tags present in canonical order.
func distinctTags(tagged []taggedLine) []weekday.Tag {
	seen := map[weekday.Tag]bool{}
	tags := make([]weekday.Tag, 0, len(weekday.All))
	for _, tl := range tagged {
		if seen[tl.tag] {
			continue
		}
		seen[tl.tag] = true
		tags = append(tags, tl.tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Index() < tags[j].Index() })
	return tags
}

func next(tag weekday.Tag, from time.Time) time.Time {
	// tags reaching here are known, so NextOccurrence cannot fail
	date, _ := weekday.NextOccurrence(tag, from)
	return date
}
