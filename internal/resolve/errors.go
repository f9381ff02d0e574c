package resolve

import "fmt"

// UsageError reports a call with the wrong argument types or counts. It is
// always raised before anything is mutated.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	if e.Op == "" {
		return "usage: " + e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// Usagef builds a UsageError for op.
func Usagef(op, format string, args ...any) *UsageError {
	return &UsageError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
