package core

// Logger is the app-wide logging contract.
// Implementations may inspect args for known types (errors, member identities)
// and forward them to an error tracker.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
