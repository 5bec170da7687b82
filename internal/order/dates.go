package order

import "time"

// Shipping dates arrive as free text from checkout: either a concrete
// date or the literal "Standard". Only lines with a parseable date ever
// auto-advance to the to-receive partition.
var shippingDateLayouts = []string{"2006-01-02", time.RFC3339}

func parseShippingDate(s string) (time.Time, bool) {
	for _, layout := range shippingDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// calendarSameOrAfter reports whether a's calendar date is on or after
// b's. Time-of-day is ignored entirely: 23:59 the day before the
// threshold is still before it, 00:00 on the day is on it.
func calendarSameOrAfter(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay > by
	}
	if am != bm {
		return am > bm
	}
	return ad >= bd
}

// shippingThresholdReached reports whether now has reached one calendar
// day before the line's shipping date. The second result is false when
// the shipping date is not a parseable date.
func shippingThresholdReached(shippingDate string, now time.Time) (reached, valid bool) {
	shipDate, ok := parseShippingDate(shippingDate)
	if !ok {
		return false, false
	}
	threshold := shipDate.AddDate(0, 0, -1)
	return calendarSameOrAfter(now, threshold), true
}

// dateOnly truncates a timestamp to its calendar date in UTC, the
// precision used for received and canceled stamps.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
