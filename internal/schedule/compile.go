package schedule

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Compiled is the result of compiling free-text schedule input.
//
// Cron is a canonical five-field expression (minute hour dom month dow) with
// dom and month always wildcards: only weekly-repeating patterns are
// supported. Description is a canonical restatement of the compiled rule,
// never an echo of the input, so cosmetic rewording of an unchanged rule
// produces an identical description.
type Compiled struct {
	Cron        string
	Description string

	// DurationMinutes is an optional hint ("for 90 minutes"); 0 when the
	// input carries none. Callers normally supply duration separately.
	DurationMinutes int
}

const dayPattern = `sundays?|sun|mondays?|mon|tuesdays?|tues?|wednesdays?|wed|thursdays?|thur?s?|fridays?|fri|saturdays?|sat`

var (
	reDuration = regexp.MustCompile(`\bfor\s+(\d+)\s*(minutes?|mins?|hours?|hrs?)\b`)
	reClock    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(a\.?m\.?|p\.?m\.?)?`)
	reHourAMPM = regexp.MustCompile(`\b(\d{1,2})\s*(a\.?m\.?|p\.?m\.?)`)
	reAtHour   = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	reNoon     = regexp.MustCompile(`\bnoon\b`)
	reMidnight = regexp.MustCompile(`\bmidnight\b`)
	reDaypart  = regexp.MustCompile(`\b(?:morning|afternoon|evening|night)\b`)
	reDayRange = regexp.MustCompile(`\b(` + dayPattern + `)\s*(?:through|thru|to|-)\s*(` + dayPattern + `)\b`)
	reDayWord  = regexp.MustCompile(`\b(?:` + dayPattern + `)\b`)
	reWeekdays = regexp.MustCompile(`\bweek\s?days?\b`)
	reWeekends = regexp.MustCompile(`\bweek\s?ends?\b`)
	reEveryDay = regexp.MustCompile(`\b(?:every|each)\s+day\b|\beveryday\b|\bdaily\b`)
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Compile turns a human-readable weekly schedule ("every weekday at 8:00 AM")
// into a cron expression plus a canonical description. It is deterministic
// and has no side effects; on error nothing partial is returned.
func Compile(text string) (Compiled, error) {
	src := strings.ToLower(strings.TrimSpace(text))
	if src == "" {
		return Compiled{}, fmt.Errorf("schedule text is empty")
	}

	src, durMin, err := extractDuration(src)
	if err != nil {
		return Compiled{}, err
	}

	src, hour, minute, err := extractTime(src)
	if err != nil {
		return Compiled{}, err
	}

	days, err := extractDays(src)
	if err != nil {
		return Compiled{}, err
	}

	return Compiled{
		Cron:            fmt.Sprintf("%d %d * * %s", minute, hour, dowExpr(days)),
		Description:     describe(days, hour, minute),
		DurationMinutes: durMin,
	}, nil
}

// extractDuration pulls an optional "for N minutes/hours" hint out of the
// input and returns the text with the hint removed, so the bare number can
// never be mistaken for a clock time.
func extractDuration(src string) (string, int, error) {
	m := reDuration.FindStringSubmatch(src)
	if m == nil {
		return src, 0, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("invalid duration %q", m[0])
	}
	if strings.HasPrefix(m[2], "h") {
		n *= 60
	}
	if n > 1440 {
		return "", 0, fmt.Errorf("duration %q exceeds 24 hours", m[0])
	}
	return reDuration.ReplaceAllString(src, " "), n, nil
}

func extractTime(src string) (rest string, hour, minute int, err error) {
	// Whole words only: "afternoon" must not read as "noon".
	if reNoon.MatchString(src) {
		return reNoon.ReplaceAllString(src, " "), 12, 0, nil
	}
	if reMidnight.MatchString(src) {
		return reMidnight.ReplaceAllString(src, " "), 0, 0, nil
	}

	if m := reClock.FindStringSubmatch(src); m != nil {
		if m[3] == "" && reDaypart.MatchString(src) {
			return "", 0, 0, fmt.Errorf("ambiguous time in %q: use am/pm or 24-hour time", src)
		}
		hour, minute, err = clockTime(m[1], m[2], m[3])
		if err != nil {
			return "", 0, 0, err
		}
		return reClock.ReplaceAllString(src, " "), hour, minute, nil
	}
	if m := reHourAMPM.FindStringSubmatch(src); m != nil {
		hour, minute, err = clockTime(m[1], "", m[2])
		if err != nil {
			return "", 0, 0, err
		}
		return reHourAMPM.ReplaceAllString(src, " "), hour, minute, nil
	}
	if m := reAtHour.FindStringSubmatch(src); m != nil {
		// A bare hour is read as 24-hour time; a trailing "in the afternoon"
		// would contradict that silently, so reject it.
		if reDaypart.MatchString(src) {
			return "", 0, 0, fmt.Errorf("ambiguous time in %q: use am/pm or 24-hour time", src)
		}
		h, _ := strconv.Atoi(m[1])
		if h > 23 {
			return "", 0, 0, fmt.Errorf("hour %d out of range", h)
		}
		return reAtHour.ReplaceAllString(src, " "), h, 0, nil
	}
	return "", 0, 0, fmt.Errorf("no time of day recognized in %q", src)
}

func clockTime(hh, mm, meridiem string) (int, int, error) {
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour %q", hh)
	}
	m := 0
	if mm != "" {
		m, err = strconv.Atoi(mm)
		if err != nil || m > 59 {
			return 0, 0, fmt.Errorf("invalid minute %q", mm)
		}
	}
	switch ampm := strings.ReplaceAll(meridiem, ".", ""); ampm {
	case "":
		if h > 23 {
			return 0, 0, fmt.Errorf("hour %d out of range", h)
		}
	case "am", "pm":
		if h < 1 || h > 12 {
			return 0, 0, fmt.Errorf("hour %d out of range for %s", h, ampm)
		}
		h %= 12
		if ampm == "pm" {
			h += 12
		}
	}
	return h, m, nil
}

// extractDays resolves the day-of-week set. An explicit day list or range
// always wins over a named group word when both appear.
func extractDays(src string) ([]int, error) {
	set := map[int]bool{}

	// Ranges first; consume them so their endpoints don't double as singles.
	for _, m := range reDayRange.FindAllStringSubmatch(src, -1) {
		from := dayIndex(m[1])
		to := dayIndex(m[2])
		for d := from; ; d = (d + 1) % 7 {
			set[d] = true
			if d == to {
				break
			}
		}
	}
	src = reDayRange.ReplaceAllString(src, " ")

	for _, w := range reDayWord.FindAllString(src, -1) {
		set[dayIndex(w)] = true
	}

	if len(set) == 0 {
		switch {
		case reEveryDay.MatchString(src):
			for d := 0; d < 7; d++ {
				set[d] = true
			}
		case reWeekdays.MatchString(src):
			for d := 1; d <= 5; d++ {
				set[d] = true
			}
		case reWeekends.MatchString(src):
			set[0] = true
			set[6] = true
		default:
			return nil, fmt.Errorf("no weekday, day list or day group recognized in %q", src)
		}
	}

	days := make([]int, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}

func dayIndex(word string) int {
	switch word[:3] {
	case "sun":
		return 0
	case "mon":
		return 1
	case "tue":
		return 2
	case "wed":
		return 3
	case "thu":
		return 4
	case "fri":
		return 5
	default:
		return 6
	}
}

// dowExpr renders the sorted day set as a canonical cron day-of-week field:
// "*" for all seven, contiguous runs of three or more collapsed to a-b,
// everything else a comma list (Sunday=0).
func dowExpr(days []int) string {
	if len(days) == 7 {
		return "*"
	}
	var parts []string
	for i := 0; i < len(days); {
		j := i
		for j+1 < len(days) && days[j+1] == days[j]+1 {
			j++
		}
		if j-i >= 2 {
			parts = append(parts, fmt.Sprintf("%d-%d", days[i], days[j]))
		} else {
			for k := i; k <= j; k++ {
				parts = append(parts, strconv.Itoa(days[k]))
			}
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

func describe(days []int, hour, minute int) string {
	return dayPhrase(days) + " at " + clockPhrase(hour, minute)
}

func dayPhrase(days []int) string {
	switch {
	case len(days) == 7:
		return "Every day"
	case equalDays(days, []int{1, 2, 3, 4, 5}):
		return "Weekdays"
	case equalDays(days, []int{0, 6}):
		return "Weekends"
	}

	// Monday-first reading order.
	names := make([]string, 0, len(days))
	for _, d := range []int{1, 2, 3, 4, 5, 6, 0} {
		for _, got := range days {
			if got == d {
				names = append(names, dayNames[d])
			}
		}
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func clockPhrase(hour, minute int) string {
	ampm := "AM"
	if hour >= 12 {
		ampm = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, ampm)
}

func equalDays(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
