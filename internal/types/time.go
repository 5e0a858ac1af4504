package types

import (
	"fmt"
	"time"
)

// FormatRelativeTime renders a scan timestamp the way the history screen
// shows it: "Just now", then minutes, hours, and days, falling back to a
// plain date after a week.
func FormatRelativeTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}

	diff := now.Sub(t)
	mins := int(diff.Minutes())
	hours := int(diff.Hours())
	days := int(diff.Hours() / 24)

	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("1/2/2006")
	}
}
