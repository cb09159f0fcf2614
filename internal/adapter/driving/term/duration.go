package term

import (
	"fmt"
	"time"
)

// FormatDuration renders the elapsed time between two timestamps as a short
// human-readable string ("2m 5s"). A completion time earlier than the start
// is reported as invalid rather than a negative value.
func FormatDuration(started, completed time.Time) string {
	d := completed.Sub(started)
	if d < 0 {
		return "invalid"
	}

	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// formatLocalTime renders a timestamp in the operator's local timezone.
func formatLocalTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05 MST")
}
