package bot

// UsageError rejects a malformed invocation; the router replies with the
// usage line and nothing else.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "usage: " + e.Usage }

// Usagef is shorthand for returning a UsageError from a handler.
func Usagef(usage string) error { return &UsageError{Usage: usage} }
