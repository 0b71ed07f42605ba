package openday

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LocalOffset is the fixed offset used when building event timestamps.
//
// Open-day season on the source runs November through March, which falls
// entirely inside Dutch winter time (CET, +01:00). Events announced outside
// that season get a wrong offset; that limitation is accepted rather than
// papered over with season-aware resolution, because changing it would shift
// every persisted timestamp.
var LocalOffset = time.FixedZone("CET", 1*60*60)

// Date is a parsed calendar date from a standalone date line.
type Date struct {
	Year  int
	Month int
	Day   int
}

// TimeRange is a parsed start/end pair, both zero-padded "HH:MM".
type TimeRange struct {
	Start string
	End   string
}

var dutchMonths = map[string]int{
	"januari":   1,
	"februari":  2,
	"maart":     3,
	"april":     4,
	"mei":       5,
	"juni":      6,
	"juli":      7,
	"augustus":  8,
	"september": 9,
	"oktober":   10,
	"november":  11,
	"december":  12,
}

var (
	dateLinePattern  = regexp.MustCompile(`(?i)^(\d{1,2})\s+(januari|februari|maart|april|mei|juni|juli|augustus|september|oktober|november|december)\s+(\d{4})$`)
	timeRangePattern = regexp.MustCompile(`(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})`)
)

// ParseDateLine parses a standalone Dutch date line such as
// "15 januari 2026". Lines that are not exactly a date return ok=false.
func ParseDateLine(line string) (Date, bool) {
	m := dateLinePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Date{}, false
	}

	day, _ := strconv.Atoi(m[1])
	month, ok := dutchMonths[strings.ToLower(m[2])]
	if !ok {
		return Date{}, false
	}
	year, _ := strconv.Atoi(m[3])

	return Date{Year: year, Month: month, Day: day}, true
}

// ParseTimeRange extracts a start/end time pair from a line. The source
// writes times in several shapes ("10.00 – 14.00 uur", "10:00 tot 14:00");
// separators are normalized before matching HH:MM - HH:MM. A pair whose
// start is after its end is not a range and returns ok=false.
func ParseTimeRange(line string) (TimeRange, bool) {
	s := strings.ToLower(line)
	s = strings.ReplaceAll(s, "uur", "")
	s = strings.ReplaceAll(s, ".", ":")
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	s = strings.ReplaceAll(s, "tot", "-")
	s = strings.Join(strings.Fields(s), " ")

	m := timeRangePattern.FindStringSubmatch(s)
	if m == nil {
		return TimeRange{}, false
	}

	start, end := padClock(m[1]), padClock(m[2])
	// Zero-padded clocks compare correctly as strings.
	if start > end {
		return TimeRange{}, false
	}
	return TimeRange{Start: start, End: end}, true
}

// At combines the date with an "HH:MM" clock string into a timestamp at the
// fixed local offset.
func (d Date) At(hhmm string) time.Time {
	parts := strings.SplitN(hhmm, ":", 2)
	hh, _ := strconv.Atoi(parts[0])
	mm := 0
	if len(parts) == 2 {
		mm, _ = strconv.Atoi(parts[1])
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, hh, mm, 0, 0, LocalOffset)
}

// padClock zero-pads a single-digit hour: "9:30" -> "09:30".
func padClock(s string) string {
	if i := strings.Index(s, ":"); i == 1 {
		return "0" + s
	}
	return s
}
