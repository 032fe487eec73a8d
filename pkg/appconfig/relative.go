package appconfig

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeToken = regexp.MustCompile(`^(\d+)([YMDhms])$`)

// relativeUnits lists the units in the order they are applied.
var relativeUnits = []byte{'Y', 'M', 'D', 'h', 'm', 's'}

// parseRelative sums the amount of every recognised token per unit.
// Unknown tokens are ignored.
func parseRelative(expr string) (map[byte]int, bool) {
	amounts := make(map[byte]int, len(relativeUnits))
	found := false
	for _, tok := range strings.Fields(expr) {
		m := relativeToken.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		amounts[m[2][0]] += n
		found = true
	}
	return amounts, found
}

// AddRelative adds a relative-duration expression such as "2D 3h" to t.
//
// Units are Y (years), M (months), D (days), h (hours), m (minutes) and
// s (seconds). They are applied year, month, day, hour, minute, second,
// whatever order the tokens appear in.
func AddRelative(t time.Time, expr string) time.Time {
	amounts, _ := parseRelative(expr)
	for _, unit := range relativeUnits {
		n := amounts[unit]
		if n == 0 {
			continue
		}
		switch unit {
		case 'Y':
			t = t.AddDate(n, 0, 0)
		case 'M':
			t = t.AddDate(0, n, 0)
		case 'D':
			t = t.AddDate(0, 0, n)
		case 'h':
			t = t.Add(time.Duration(n) * time.Hour)
		case 'm':
			t = t.Add(time.Duration(n) * time.Minute)
		case 's':
			t = t.Add(time.Duration(n) * time.Second)
		}
	}
	return t
}

// ValidRelative reports whether expr contains at least one recognised token.
func ValidRelative(expr string) bool {
	_, ok := parseRelative(expr)
	return ok
}
