package booking

import "errors"

// Error kinds returned by the checker and the manager. Callers test them
// with errors.Is and map them to transport status codes.
var (
	// ErrInvalidInput marks missing or malformed fields, dates out of
	// order, past check-in dates and forbidden state transitions.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a booking or room that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks a room/date combination that collides with a
	// confirmed booking.
	ErrUnavailable = errors.New("unavailable")
	// ErrPersistence marks a storage failure outside the other kinds.
	ErrPersistence = errors.New("persistence failure")
)

// Error carries an error kind, a human-readable message and, for
// persistence failures, the underlying cause.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the text meant for the client, without the cause.
func Message(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Msg
	}
	return err.Error()
}

func invalid(msg string) error  { return &Error{Kind: ErrInvalidInput, Msg: msg} }
func notFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

func unavailable() error {
	return &Error{Kind: ErrUnavailable, Msg: "room is not available for the selected dates"}
}

func persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Msg: op + " failed", Err: err}
}
