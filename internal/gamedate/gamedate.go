// Package gamedate converts OpenTTD day counts into calendar dates.
//
// Day 0 is 1 January of year 0 in the proleptic Gregorian calendar, with
// year 0 treated as a leap year.
package gamedate

import (
	"fmt"
	"time"
)

const (
	daysInYear     = 365
	daysInLeapYear = 366
	daysIn4Years   = daysInYear*4 + 1
	daysIn100Years = daysInYear*100 + 24
	// The first century of every 400-year cycle has one more leap year.
	daysInFirst100 = daysInYear*100 + 25
	daysIn400Years = daysInYear*400 + 97

	// Index of 1 March in a leap year, zero based.
	accumMarch = 31 + 29
)

// accumDays is the day offset of each month's first day in a leap year.
var accumDays = [13]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335, 366}

// Date is an immutable calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// FromDays decomposes a day count into year, month and day.
func FromDays(days uint32) Date {
	d := int(days)
	year := 400 * (d / daysIn400Years)
	rem := d % daysIn400Years

	if rem >= daysInFirst100 {
		year += 100
		rem -= daysInFirst100
		year += 100 * (rem / daysIn100Years)
		rem %= daysIn100Years
	}

	// the first four years of a non-400 century contain no leap year
	if !IsLeapYear(year) && rem >= daysInYear*4 {
		year += 4
		rem -= daysInYear * 4
	}

	year += 4 * (rem / daysIn4Years)
	rem %= daysIn4Years

	for {
		n := daysInYear
		if IsLeapYear(year) {
			n = daysInLeapYear
		}
		if rem < n {
			break
		}
		rem -= n
		year++
	}

	// walk a leap-year month table; non-leap years skip 29 February
	if !IsLeapYear(year) && rem >= accumMarch-1 {
		rem++
	}
	month := 1
	for month < 12 && rem >= accumDays[month] {
		month++
	}
	return Date{Year: year, Month: time.Month(month), Day: rem - accumDays[month-1] + 1}
}

// ToDays is the inverse of FromDays.
func ToDays(d Date) uint32 {
	days := accumDays[d.Month-1] + d.Day - 1
	if !IsLeapYear(d.Year) && days >= accumMarch {
		days--
	}
	return uint32(startOfYear(d.Year) + days)
}

func startOfYear(year int) int {
	leaps := 0
	if year > 0 {
		leaps = (year-1)/4 - (year-1)/100 + (year-1)/400 + 1
	}
	return daysInYear*year + leaps
}

// String formats d as DD.MM.YYYY.
func (d Date) String() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}

// Normalized coalesces a nonexistent 29 February into 28 February.
func (d Date) Normalized() Date {
	if d.Month == time.February && d.Day == 29 && !IsLeapYear(d.Year) {
		d.Day = 28
	}
	return d
}

// StorageString formats d as YYYY-MM-DD for SQL DATE columns.
func (d Date) StorageString() string {
	n := d.Normalized()
	return fmt.Sprintf("%04d-%02d-%02d", n.Year, int(n.Month), n.Day)
}

// Time returns midnight UTC of the normalized date.
func (d Date) Time() time.Time {
	n := d.Normalized()
	return time.Date(n.Year, n.Month, n.Day, 0, 0, 0, 0, time.UTC)
}

// ParseStorage parses the YYYY-MM-DD form written by StorageString.
func ParseStorage(s string) (Date, error) {
	var d Date
	var month int
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &d.Year, &month, &d.Day); err != nil {
		return Date{}, fmt.Errorf("gamedate: parse %q: %w", s, err)
	}
	if month < 1 || month > 12 || d.Day < 1 || d.Day > 31 {
		return Date{}, fmt.Errorf("gamedate: parse %q: out of range", s)
	}
	d.Month = time.Month(month)
	return d, nil
}
