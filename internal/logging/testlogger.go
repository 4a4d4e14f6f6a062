package logging

import "fmt"

// TestLogger is a simple logger implementation for testing purposes.
// It writes to stdout and can be used in tests where a Logger interface is required.
type TestLogger struct {
	verbose bool
	fields  []Field
}

// NewTestLogger creates a new test logger.
func NewTestLogger(verbose bool) *TestLogger {
	return &TestLogger{verbose: verbose}
}

func (tl *TestLogger) print(level, msg string, fields []Field) {
	all := make([]Field, 0, len(tl.fields)+len(fields))
	all = append(all, tl.fields...)
	all = append(all, fields...)
	fmt.Printf("[%s] %s %v\n", level, msg, all)
}

func (tl *TestLogger) Debug(msg string, fields ...Field) {
	if tl.verbose {
		tl.print("DEBUG", msg, fields)
	}
}

func (tl *TestLogger) Info(msg string, fields ...Field) {
	if tl.verbose {
		tl.print("INFO", msg, fields)
	}
}

func (tl *TestLogger) Warn(msg string, fields ...Field) {
	tl.print("WARN", msg, fields)
}

func (tl *TestLogger) Error(msg string, fields ...Field) {
	tl.print("ERROR", msg, fields)
}

func (tl *TestLogger) With(fields ...Field) Logger {
	child := &TestLogger{verbose: tl.verbose}
	child.fields = append(child.fields, tl.fields...)
	child.fields = append(child.fields, fields...)
	return child
}

// Nop is a logger that discards everything. Handy as a default in constructors
// that accept an optional logger.
type Nop struct{}

func (Nop) Debug(msg string, fields ...Field) {}
func (Nop) Info(msg string, fields ...Field)  {}
func (Nop) Warn(msg string, fields ...Field)  {}
func (Nop) Error(msg string, fields ...Field) {}
func (Nop) With(fields ...Field) Logger       { return Nop{} }
