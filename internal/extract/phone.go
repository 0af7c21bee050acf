package extract

import (
	"regexp"
	"strings"
)

var (
	phoneRE = regexp.MustCompile(`(?:\+1[\s.-]?)?(?:\(\d{3}\)|\d{3})[\s.-]?\d{3}[\s.-]?\d{4}`)
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// Phone returns the first ten-digit phone number in text as bare digits.
// Separators (space, dot, hyphen, parentheses) and a leading +1 are
// accepted. A candidate touching another digit is rejected so longer
// numbers such as VINs or order ids don't produce false matches.
func Phone(text string) (string, bool) {
	for _, loc := range phoneRE.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isDigit(text[start-1]) {
			continue
		}
		if end < len(text) && isDigit(text[end]) {
			continue
		}
		digits := digitsOnly(text[start:end])
		if len(digits) == 11 && digits[0] == '1' {
			digits = digits[1:]
		}
		if len(digits) == 10 {
			return digits, true
		}
	}
	return "", false
}

// Email returns the first email address in text, lowercased.
func Email(text string) (string, bool) {
	m := emailRE.FindString(text)
	if m == "" {
		return "", false
	}
	return strings.ToLower(strings.TrimRight(m, ".")), true
}

// FormatPhone renders ten digits as (555) 123-4567. Other input is returned as is.
func FormatPhone(digits string) string {
	if len(digits) != 10 {
		return digits
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isDigit(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
