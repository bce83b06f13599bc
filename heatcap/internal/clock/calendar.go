package clock

import "time"

// usHolidays returns the NYSE full-day closures of year as midnight UTC dates.
func usHolidays(year int) []time.Time {
	holidays := make([]time.Time, 0, 10)

	// New Year's Day. A Saturday New Year is not observed on the Friday
	// before, which would fall in the previous year.
	newYear := date(year, time.January, 1)
	if newYear.Weekday() != time.Saturday {
		holidays = append(holidays, observe(newYear))
	}

	holidays = append(holidays,
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Washington's Birthday
		easter(year).AddDate(0, 0, -2),                  // Good Friday
		lastWeekday(year, time.May, time.Monday),        // Memorial Day
	)

	if year >= 2022 {
		holidays = append(holidays, observe(date(year, time.June, 19)))
	}

	holidays = append(holidays,
		observe(date(year, time.July, 4)),
		nthWeekday(year, time.September, time.Monday, 1), // Labor Day
		thanksgiving(year),
		observe(date(year, time.December, 25)),
	)
	return holidays
}

// isEarlyClose reports whether d (a midnight UTC date that is already known to
// be a trading day) closes early: the day after Thanksgiving, Christmas Eve
// and July 3rd.
func isEarlyClose(d time.Time) bool {
	switch {
	case sameDay(d, thanksgiving(d.Year()).AddDate(0, 0, 1)):
		return true
	case d.Month() == time.December && d.Day() == 24:
		return true
	case d.Month() == time.July && d.Day() == 3:
		return true
	}
	return false
}

func thanksgiving(year int) time.Time {
	return nthWeekday(year, time.November, time.Thursday, 4)
}

// easter computes Western (Gregorian) Easter Sunday with the anonymous
// Gregorian computus.
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return date(year, time.Month(month), day)
}

// nthWeekday finds the nth (1-based) weekday of a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := date(year, month, 1)
	offset := int(weekday - d.Weekday())
	if offset < 0 {
		offset += 7
	}
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday finds the last weekday of a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := date(year, month+1, 0)
	offset := int(d.Weekday() - weekday)
	if offset < 0 {
		offset += 7
	}
	return d.AddDate(0, 0, -offset)
}

// observe moves a weekend holiday to the nearest weekday.
func observe(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// civil strips t down to its calendar date in t's own location.
func civil(t time.Time) time.Time {
	return date(t.Year(), t.Month(), t.Day())
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func isWeekend(d time.Time) bool {
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}
