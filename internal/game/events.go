/*
Package game
File: events.go
Description:
    The notification sink. Every engine operation appends human readable
    events here instead of writing to a UI; the presentation layer drains
    them after each call and renders or broadcasts them.
*/

package game

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Severity classifies a notification for display.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityOK    Severity = "ok"
	SeverityWarn  Severity = "warn"
	SeverityBad   Severity = "bad"
	SeverityMuted Severity = "muted"
)

// Event is one notification line.
type Event struct {
	Turn     int      `json:"turn" db:"turn"`
	Severity Severity `json:"severity" db:"severity"`
	Message  string   `json:"message" db:"message"`
}

type eventLog struct {
	events []Event
}

func (l *eventLog) add(turn int, sev Severity, format string, args ...any) {
	l.events = append(l.events, Event{Turn: turn, Severity: sev, Message: fmt.Sprintf(format, args...)})
}

func (l *eventLog) drain() []Event {
	out := l.events
	l.events = nil
	return out
}

// FormatMoney renders an amount the way the ledger shows it: "$1,234" or "-$50".
func FormatMoney(n int) string {
	if n < 0 {
		return "-$" + humanize.Comma(int64(-n))
	}
	return "$" + humanize.Comma(int64(n))
}
