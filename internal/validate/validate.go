// Package validate holds the checks run on form input before any backend call.
package validate

import (
	"math"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/paydesk/server/internal/model"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	dateLayout        = "2006-01-02"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

// Errors maps a form field to its problem
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// Add records the first problem for field
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Err returns nil when nothing was recorded
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Required flags blank values
func (e Errors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "is required")
		return false
	}
	return true
}

// Email checks a required email address
func (e Errors) Email(field, value string) {
	if !e.Required(field, value) {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != strings.TrimSpace(value) {
		e.Add(field, "must be a valid email address")
	}
}

// Password enforces the password policy
func (e Errors) Password(field, value string) {
	if !e.Required(field, value) {
		return
	}
	if len(value) < minPasswordLength || len(value) > maxPasswordLength {
		e.Add(field, "must be between 8 and 128 characters")
		return
	}
	var upper, lower, digit, symbol bool
	for _, r := range value {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		e.Add(field, "must contain upper and lower case letters, a digit and a symbol")
	}
}

// Confirm checks that a confirmation field repeats value
func (e Errors) Confirm(field, value, confirmation string) {
	if value != confirmation {
		e.Add(field, "does not match")
	}
}

// OTP checks a six-digit code
func (e Errors) OTP(field, value string) {
	if !e.Required(field, value) {
		return
	}
	if !otpPattern.MatchString(strings.TrimSpace(value)) {
		e.Add(field, "must be 6 digits")
	}
}

// Channel checks an OTP delivery channel
func (e Errors) Channel(field, value string) {
	switch value {
	case model.ChannelEmail, model.ChannelSMS:
	default:
		e.Add(field, "must be EMAIL or SMS")
	}
}

// Amount checks a positive, finite money amount
func (e Errors) Amount(field string, value float64) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		e.Add(field, "must be a number")
		return
	}
	if value <= 0 {
		e.Add(field, "must be greater than zero")
	}
}

// DateRange checks optional YYYY-MM-DD bounds and an optional interval
func (e Errors) DateRange(r model.DateRange) {
	var start, end time.Time
	var err error
	if r.StartDate != "" {
		if start, err = time.Parse(dateLayout, r.StartDate); err != nil {
			e.Add("startDate", "must be a date in YYYY-MM-DD form")
		}
	}
	if r.EndDate != "" {
		if end, err = time.Parse(dateLayout, r.EndDate); err != nil {
			e.Add("endDate", "must be a date in YYYY-MM-DD form")
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		e.Add("endDate", "must not be before startDate")
	}
	switch r.Interval {
	case "", model.IntervalDaily, model.IntervalWeekly, model.IntervalMonthly:
	default:
		e.Add("interval", "must be DAILY, WEEKLY or MONTHLY")
	}
}
