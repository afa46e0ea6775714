package log

// Logger receives provisioning events.
// Pass NoopLogger to disable event capture.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and should
	// not block: provisioning waits on the call.
	Log(event Event)
}

// NoopLogger discards all events. It is usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
