package weekday

import "time"

// NextOccurrence returns midnight of the first day strictly after from's
// calendar day that falls on tag, in from's location.
func NextOccurrence(tag Tag, from time.Time) (time.Time, error) {
	if !tag.Known() {
		return time.Time{}, &InvalidTagError{Raw: tag.String()}
	}

	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	delta := (int(tag.Weekday()) - int(day.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return day.AddDate(0, 0, delta), nil
}
