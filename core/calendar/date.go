// Package calendar handles plain calendar dates (no time of day, no timezone).
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Date is a civil date. The zero value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the Date for y-m-d, or ErrInvalidDate if it does not exist (e.g. 2023-02-29).
func New(year int, month time.Month, day int) (Date, error) {
	if month < time.January || month > time.December || day < 1 || day > daysIn(year, month) {
		return Date{}, errors.Wrapf(ErrInvalidDate, "%04d-%02d-%02d", year, int(month), day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// MustNew is like New but panics on invalid dates. Meant for constants and tests.
func MustNew(year int, month time.Month, day int) Date {
	d, err := New(year, month, day)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return FromTime(now.In(loc))
}

// timestamp layouts accepted by Parse on top of the plain date layout
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// Parse accepts "YYYY-MM-DD" or a timestamp (RFC 3339 and friends). For timestamps, the calendar
// day is taken as written, ignoring the offset, so "2024-01-07T23:30:00-08:00" is 2024-01-07.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(layout) {
		return Date{}, errors.Wrapf(ErrInvalidDate, "%q", s)
	}
	if len(s) > len(layout) {
		var ok bool
		for _, l := range timestampLayouts {
			if _, err := time.Parse(l, s); err == nil {
				ok = true
				break
			}
		}
		if !ok {
			return Date{}, errors.Wrapf(ErrInvalidDate, "%q", s)
		}
	}
	datePart := s[:len(layout)]
	if datePart[4] != '-' || datePart[7] != '-' {
		return Date{}, errors.Wrapf(ErrInvalidDate, "%q", s)
	}
	y, yErr := strconv.Atoi(datePart[:4])
	m, mErr := strconv.Atoi(datePart[5:7])
	d, dErr := strconv.Atoi(datePart[8:])
	if yErr != nil || mErr != nil || dErr != nil {
		return Date{}, errors.Wrapf(ErrInvalidDate, "%q", s)
	}
	return New(y, time.Month(m), d)
}

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) ordinal() int { return daysFromCivil(d.Year, int(d.Month), d.Day) }

func fromOrdinal(n int) Date {
	y, m, day := civilFromDays(n)
	return Date{Year: y, Month: time.Month(m), Day: day}
}

func (d Date) AddDays(n int) Date { return fromOrdinal(d.ordinal() + n) }

// DaysSince returns d - other in days.
func (d Date) DaysSince(other Date) int { return d.ordinal() - other.ordinal() }

func (d Date) Weekday() time.Weekday {
	// 1970-01-01 was a Thursday
	return time.Weekday(mod(d.ordinal()+int(time.Thursday), 7))
}

func (d Date) Before(other Date) bool { return d.ordinal() < other.ordinal() }
func (d Date) After(other Date) bool  { return d.ordinal() > other.ordinal() }

// WeekOf returns the Monday of the Monday-to-Sunday week containing d.
// Sunday belongs to the week that started six days earlier.
func WeekOf(d Date) Date {
	wd := d.Weekday()
	if wd == time.Sunday {
		return d.AddDays(-6)
	}
	return d.AddDays(-(int(wd) - int(time.Monday)))
}

// SQL & JSON codecs

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case string:
		return d.parseInto(v)
	case []byte:
		return d.parseInto(string(v))
	default:
		return errors.Errorf("calendar.Date: cannot scan %T", src)
	}
}

func (d *Date) parseInto(s string) error {
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON reports bad input as a *json.UnmarshalTypeError so that
// the decoder fills in the offending field name.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(Date{})}
	}
	parsed, err := Parse(s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "date " + string(data), Type: reflect.TypeOf(Date{})}
	}
	*d = parsed
	return nil
}

// civil date arithmetic, see http://howardhinnant.github.io/date_algorithms.html

func daysFromCivil(y, m, d int) int {
	if m <= 2 {
		y--
	}
	era := floorDiv(y, 400)
	yoe := y - era*400
	mp := (m + 9) % 12 // March = 0
	doy := (153*mp+2)/5 + d - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

func civilFromDays(z int) (y, m, d int) {
	z += 719468
	era := floorDiv(z, 146097)
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146096) / 365
	y = yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	d = doy - (153*mp+2)/5 + 1
	if mp < 10 {
		m = mp + 3
	} else {
		m = mp - 9
	}
	if m <= 2 {
		y++
	}
	return y, m, d
}

func daysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
