// internal/core/domain/notification.go
package domain

// Severity of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is a transient status message. ID increases with every
// notification shown.
type Notification struct {
	ID       uint64
	Message  string
	Severity Severity
}
