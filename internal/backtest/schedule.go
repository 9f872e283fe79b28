package backtest

import "time"

// MonthEndDates returns every calendar month-end date inside [start, end],
// ascending. When end is not itself a month end it is appended so the
// schedule always closes on the requested end date.
func MonthEndDates(start, end time.Time) []time.Time {
	var dates []time.Time
	cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	for !cursor.After(end) {
		monthEnd := cursor.AddDate(0, 1, -1)
		if !monthEnd.Before(start) && !monthEnd.After(end) {
			dates = append(dates, monthEnd)
		}
		cursor = cursor.AddDate(0, 1, 0)
	}
	if len(dates) == 0 || !dates[len(dates)-1].Equal(end) {
		dates = append(dates, end)
	}
	return dates
}

// NextTradingDay returns the first weekday strictly after day. Exchange
// holidays are ignored; the price lookup already falls forward to the next
// session with data.
func NextTradingDay(day time.Time) time.Time {
	next := day.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
