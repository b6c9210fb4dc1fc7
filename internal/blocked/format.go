package blocked

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DateLayout        = "January 2, 2006"
	AppointmentLayout = "Monday, January 2 at 3:04 PM"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders a USD amount without cents, e.g. "$25,000".
func FormatCurrency(amount float64) string {
	rounded := int64(math.Round(math.Abs(amount)))
	if amount < 0 && rounded != 0 {
		return usPrinter.Sprintf("-$%d", rounded)
	}
	return usPrinter.Sprintf("$%d", rounded)
}

func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(orUTC(loc)).Format(DateLayout)
}

func FormatAppointment(t time.Time, loc *time.Location) string {
	return t.In(orUTC(loc)).Format(AppointmentLayout)
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// BusinessHours is the weekday window in which the call team answers.
type BusinessHours struct {
	Location  *time.Location
	OpenHour  int
	CloseHour int
}

// IsOpen reports whether now falls Monday to Friday in [OpenHour, CloseHour).
func (b BusinessHours) IsOpen(now time.Time) bool {
	local := now.In(orUTC(b.Location))
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := local.Hour()
	return h >= b.OpenHour && h < b.CloseHour
}

// FormatBirthDate turns a YYYY-MM-DD form value into DateLayout. Values
// that do not parse are returned unchanged.
func FormatBirthDate(value string) string {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return value
	}
	return t.Format(DateLayout)
}
