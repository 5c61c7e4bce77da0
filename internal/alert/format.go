package alert

import (
	"fmt"
	"html"
	"time"

	"github.com/charleschow/oddsentinel/internal/domain"
)

var nyLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

func severityEmoji(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical:
		return "\U0001F6A8" // rotating light
	case domain.SeverityWarning:
		return "⚠️" // warning sign
	default:
		return "ℹ️" // information
	}
}

// formatHTML renders an Alert as Telegram-flavored HTML: bold title,
// severity emoji, body, and a dual NY/UTC timestamp footer, generalizing
// the teacher's discord.Embed convenience constructors (EdgeAlert,
// OrderFill, GameOver) into one text template instead of Discord's
// embed-field shape, since the outbound channel is a Telegram-style
// sendMessage API (spec.md §4.8).
func formatHTML(a domain.Alert) string {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ny := ts.In(nyLocation).Format("Jan 2, 3:04:05 PM MST")
	utc := ts.UTC().Format("15:04:05 UTC")

	return fmt.Sprintf(
		"%s <b>%s</b>\n%s\n\n<i>%s / %s</i>",
		severityEmoji(a.Severity),
		html.EscapeString(a.Title),
		html.EscapeString(a.Message),
		ny, utc,
	)
}
