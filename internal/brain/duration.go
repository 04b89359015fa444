package brain

import (
	"fmt"
	"strings"
	"time"
)

// DurationText renders d in words: "1 day, 2 hours, 1 minute, 5 seconds".
// Zero parts are omitted; anything under a second is "".
func DurationText(d time.Duration) string {
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	for _, p := range []struct {
		n    int64
		unit string
	}{
		{days, "day"},
		{hours, "hour"},
		{minutes, "minute"},
		{seconds, "second"},
	} {
		if p.n <= 0 {
			continue
		}
		s := ""
		if p.n > 1 {
			s = "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s%s", p.n, p.unit, s))
	}
	return strings.Join(parts, ", ")
}
