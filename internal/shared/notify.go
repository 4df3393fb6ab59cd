package shared

import (
	"context"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Severity grades a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a best-effort user alert dispatched after commit.
type Notification struct {
	UserID   int64
	Title    string
	Message  string
	Severity Severity
	Link     string
}

// Notifier dispatches notifications. Implementations must be best-effort:
// a delivery failure is logged by the caller, never propagated.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a monetary amount for notification text.
func FormatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}
