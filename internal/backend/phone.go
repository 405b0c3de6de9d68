package backend

import (
	"errors"
	"strings"
)

// ErrInvalidMobile is returned for numbers that cannot be put in 233 form
var ErrInvalidMobile = errors.New("mobile number must be a valid Ghana number")

const countryCode = "233"

// NormalizeMobile converts local (0XXXXXXXXX), bare (XXXXXXXXX) and
// international (+233 / 00233) forms to 233XXXXXXXXX.
func NormalizeMobile(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r != ' ' && r != '-' && r != '+' && r != '(' && r != ')' {
			return "", ErrInvalidMobile
		}
	}
	digits := b.String()
	digits = strings.TrimPrefix(digits, "00")

	var subscriber string
	switch {
	case strings.HasPrefix(digits, countryCode) && len(digits) == 12:
		subscriber = digits[3:]
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		subscriber = digits[1:]
	case len(digits) == 9:
		subscriber = digits
	default:
		return "", ErrInvalidMobile
	}
	if subscriber[0] == '0' {
		return "", ErrInvalidMobile
	}
	return countryCode + subscriber, nil
}
