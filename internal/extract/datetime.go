package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativeDayRE = regexp.MustCompile(`(?i)\b(today|tomorrow|(?:(?:next|this|on)\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)s?)\b`)
	monthDayRE    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	clockTimeRE   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*([ap])\.?\s?m\b\.?`)
	bareAtTimeRE  = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\b`)
	noonTimeRE    = regexp.MustCompile(`(?i)\b(noon|midday)\b`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// clock is a wall-clock time of day.
type clock struct {
	hour   int
	minute int
}

// DateTime resolves the first date expression in text relative to now and
// combines it with an accompanying clock time, or the extractor's default
// hour when no time is given. The result is in now's location. An
// expression whose time is out of range (13pm, 2:75) is treated as absent.
func (e *Extractor) DateTime(text string, now time.Time) (time.Time, bool) {
	y, m, d, ok := resolveDate(text, now)
	if !ok {
		return time.Time{}, false
	}
	c, found, valid := parseClock(text)
	if found && !valid {
		return time.Time{}, false
	}
	if !found {
		c = clock{hour: e.defaultHour}
	}
	return time.Date(y, m, d, c.hour, c.minute, 0, 0, now.Location()), true
}

// resolveDate returns the calendar date named in text. Weekday names resolve
// to the next occurrence strictly after today.
func resolveDate(text string, now time.Time) (int, time.Month, int, bool) {
	if m := monthDayMatch(text); m != nil {
		month := months[strings.ToLower(m[1])]
		day, _ := strconv.Atoi(m[2])
		year := now.Year()
		candidate := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		if candidate.Month() != month || candidate.Day() != day {
			return 0, 0, 0, false
		}
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if candidate.Before(today) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		return candidate.Year(), candidate.Month(), candidate.Day(), true
	}

	m := relativeDayRE.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, 0, false
	}
	offset := 0
	switch phrase := strings.ToLower(m[1]); {
	case phrase == "today":
		offset = 0
	case phrase == "tomorrow":
		offset = 1
	default:
		target := weekdays[strings.ToLower(m[2])]
		offset = WeekdayOffset(now.Weekday(), target)
	}
	t := now.AddDate(0, 0, offset)
	return t.Year(), t.Month(), t.Day(), true
}

// monthDayMatch skips "may" written in lowercase, which is far more often
// the verb ("I may 2 come friday") than the month.
func monthDayMatch(text string) []string {
	for _, m := range monthDayRE.FindAllStringSubmatch(text, -1) {
		if m[1] == "may" {
			continue
		}
		return m
	}
	return nil
}

// WeekdayOffset returns how many days ahead target falls from today.
// Naming today's weekday means a week out.
func WeekdayOffset(today, target time.Weekday) int {
	delta := (int(target) - int(today) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return delta
}

// parseClock finds a time of day. found reports whether any time expression
// was present; valid is false when it was present but out of range.
func parseClock(text string) (c clock, found bool, valid bool) {
	if loc := clockTimeRE.FindStringSubmatchIndex(text); loc != nil {
		// "9:5pm" matches at "5pm"; a one digit minute is malformed
		if loc[0] > 0 && text[loc[0]-1] == ':' {
			return clock{}, true, false
		}
		m := submatches(text, loc)
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour < 1 || hour > 12 || minute > 59 {
			return clock{}, true, false
		}
		return clock{hour: To24Hour(hour, strings.EqualFold(m[3], "p")), minute: minute}, true, true
	}
	if noonTimeRE.MatchString(text) {
		return clock{hour: 12}, true, true
	}
	if loc := bareAtTimeRE.FindStringSubmatchIndex(text); loc != nil {
		if rest := text[loc[1]:]; strings.HasPrefix(rest, ":") {
			return clock{}, true, false
		}
		m := submatches(text, loc)
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if minute > 59 {
			return clock{}, true, false
		}
		switch {
		case hour >= 1 && hour <= 7:
			// 1-7 without am/pm means afternoon
			hour += 12
		case hour >= 8 && hour <= 12:
		case hour >= 13 && hour <= 23:
		default:
			return clock{}, true, false
		}
		return clock{hour: hour, minute: minute}, true, true
	}
	return clock{}, false, false
}

func submatches(text string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

// To24Hour converts a 12-hour clock reading. 12am is 0 and 12pm is 12.
func To24Hour(hour int, pm bool) int {
	if hour == 12 {
		if pm {
			return 12
		}
		return 0
	}
	if pm {
		return hour + 12
	}
	return hour
}
