package progress

import (
	"strconv"
	"strings"
)

// FormatBookmark renders a position as "module:slide".
func FormatBookmark(module, slide int) string {
	return strconv.Itoa(module) + ":" + strconv.Itoa(slide)
}

// ParseBookmark reads "module:slide". It reports false only for an empty
// bookmark. Fields after the second are ignored and a field that is not a
// number reads as 0.
func ParseBookmark(s string) (module, slide int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	fields := strings.Split(s, ":")
	module = atoiOrZero(fields[0])
	if len(fields) > 1 {
		slide = atoiOrZero(fields[1])
	}
	return module, slide, true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
