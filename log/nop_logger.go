package log

// nopLogger is the no operations logger, used as the fallback when the user doesn't supply a logger.
type nopLogger struct{}

// Log method for the nopLogger which does nothing.
func (n nopLogger) Log(_ Level, _ string, _ ...any) {}
