package runner

import (
	"strconv"
	"strings"
)

// FormatArgv renders argv for display, quoting arguments that would not
// survive a shell unchanged.
func FormatArgv(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'$`\\|&;<>()*?") {
			parts[i] = strconv.Quote(a)
		} else {
			parts[i] = a
		}
	}
	return strings.Join(parts, " ")
}
