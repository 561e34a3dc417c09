package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// iso8601DatePattern and iso8601DateTimePattern accept only the extended
// form: hyphenated date, 'T' separator, colon-separated time. Partial
// precision is preserved — a match group that wasn't present in the input is
// simply absent from the output.
var (
	iso8601DatePattern = regexp.MustCompile(
		`^(?P<year>\d{4})(-(?P<month>\d{2})(-(?P<day>\d{2}))?)?$`)
	iso8601DateTimePattern = regexp.MustCompile(
		`^(?P<year>\d{4})(-(?P<month>\d{2})(-(?P<day>\d{2})` +
			`(T(?P<hour>\d{2})(:(?P<minute>\d{2})(:(?P<second>\d{2}))?)?` +
			`(?P<tz>Z|[+-]\d{2}:\d{2})?)?)?)?$`)
	iso8601DurationPattern = regexp.MustCompile(
		`^P(?:(?P<years>\d+)Y)?(?:(?P<months>\d+)M)?(?:(?P<days>\d+)D)?` +
			`(?:T(?:(?P<hours>\d+)H)?(?:(?P<minutes>\d+)M)?(?:(?P<seconds>\d+)S)?)?$`)
)

// parseISO8601Extended parses an ISO 8601 extended-form date or datetime,
// rejecting basic format (no hyphens/colons) and any value containing
// spaces. It returns the matched named groups present in the input, or
// ok=false if the value doesn't match at all.
func parseISO8601Extended(value string, pattern *regexp.Regexp) (map[string]string, bool) {
	if strings.Contains(value, " ") {
		return nil, false
	}
	m := pattern.FindStringSubmatch(value)
	if m == nil {
		return nil, false
	}
	groups := make(map[string]string)
	for i, name := range pattern.SubexpNames() {
		if name == "" || m[i] == "" {
			continue
		}
		groups[name] = m[i]
	}
	if len(groups) == 0 {
		return nil, false
	}
	return groups, true
}

// normalizeISO8601Date reformats an extended-form date value to canonical
// form, preserving whatever precision (year / year-month / year-month-day)
// was present in the input.
func normalizeISO8601Date(value string) (string, bool) {
	groups, ok := parseISO8601Extended(value, iso8601DatePattern)
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString(groups["year"])
	if m, ok := groups["month"]; ok {
		b.WriteString("-" + m)
		if d, ok := groups["day"]; ok {
			b.WriteString("-" + d)
		}
	}
	return b.String(), true
}

// normalizeISO8601DateTime reformats an extended-form datetime value,
// preserving precision and passing through an optional timezone designator.
func normalizeISO8601DateTime(value string) (string, bool) {
	groups, ok := parseISO8601Extended(value, iso8601DateTimePattern)
	if !ok {
		return "", false
	}
	var b strings.Builder
	b.WriteString(groups["year"])
	month, hasMonth := groups["month"]
	if !hasMonth {
		return b.String(), true
	}
	b.WriteString("-" + month)
	day, hasDay := groups["day"]
	if !hasDay {
		return b.String(), true
	}
	b.WriteString("-" + day)
	hour, hasHour := groups["hour"]
	if !hasHour {
		return b.String(), true
	}
	b.WriteString("T" + hour)
	if minute, ok := groups["minute"]; ok {
		b.WriteString(":" + minute)
		if second, ok := groups["second"]; ok {
			b.WriteString(":" + second)
		}
	}
	if tz, ok := groups["tz"]; ok {
		b.WriteString(tz)
	}
	return b.String(), true
}

// formatISO8601Duration renders a duration as P[n]Y[n]M[n]DT[n]H[n]M[n]S from
// already-parsed component counts. It omits every
// zero/absent component; if every component is zero it emits "PT0S" so the
// output is never empty for a recognized duration.
func formatISO8601Duration(years, months, days, hours, minutes, seconds int) string {
	var b strings.Builder
	b.WriteString("P")
	if years > 0 {
		fmt.Fprintf(&b, "%dY", years)
	}
	if months > 0 {
		fmt.Fprintf(&b, "%dM", months)
	}
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || minutes > 0 || seconds > 0 {
		b.WriteString("T")
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if minutes > 0 {
			fmt.Fprintf(&b, "%dM", minutes)
		}
		if seconds > 0 {
			fmt.Fprintf(&b, "%dS", seconds)
		}
	}
	if b.Len() == 1 {
		return "PT0S"
	}
	return b.String()
}

// normalizeISO8601Duration reformats a duration value already in ISO 8601
// duration syntax into the canonical component order/casing, or passes
// unparseable input through unchanged (the caller handles that fallback).
func normalizeISO8601Duration(value string) (string, bool) {
	m := iso8601DurationPattern.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	names := iso8601DurationPattern.SubexpNames()
	get := func(key string) int {
		for i, n := range names {
			if n == key && m[i] != "" {
				v, _ := strconv.Atoi(m[i])
				return v
			}
		}
		return 0
	}
	return formatISO8601Duration(get("years"), get("months"), get("days"), get("hours"), get("minutes"), get("seconds")), true
}

// ValidExtendedForm reports whether value parses as an ISO 8601 extended-form
// date, datetime, or duration. The Validator uses this to flag
// InvalidDate without caring which of the three shapes a --DTC/--DUR
// variable actually carries.
func ValidExtendedForm(value string) bool {
	if _, ok := normalizeISO8601DateTime(value); ok {
		return true
	}
	if _, ok := normalizeISO8601Duration(value); ok {
		return true
	}
	return false
}

// parseISO8601DateOrDateTimeToTime parses an extended date or datetime value
// into a time.Time for study-day arithmetic. Only the date portion matters
// for StudyDay, so a bare date or a full datetime both work; time and
// timezone components are accepted but not required.
func parseISO8601DateOrDateTimeToTime(value string) (time.Time, bool) {
	groups, ok := parseISO8601Extended(value, iso8601DateTimePattern)
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(groups["year"])
	if err != nil {
		return time.Time{}, false
	}
	// Partial precision (year or year-month) is not enough information for
	// day arithmetic.
	m, hasMonth := groups["month"]
	d, hasDay := groups["day"]
	if !hasMonth || !hasDay {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
