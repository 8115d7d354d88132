package ui

import (
	"time"

	"github.com/dustin/go-humanize"
)

// RelativeTime labels t relative to now, e.g. "5 minutes ago".
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
