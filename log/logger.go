// Package log exposes the logging interface consumed by 'manta-go'; applications plug in their own implementation
// when constructing clients, no logger is installed globally.
package log

// Logger interface which allows applications to provide custom logger implementations.
type Logger interface {
	Log(level Level, format string, args ...any)
}
