package prog

import "fmt"

// Code is a stable numeric error code surfaced to callers alongside the
// message.
type Code uint32

const (
	CodeBelowMinimumDonation Code = 6000 + iota
	CodeMessageTooLong
	CodePaused
	CodeNotPaused
	CodeOverflow
	CodeUnauthorized
)

// Error is a structured program failure. Every program error aborts the
// enclosing operation before any state change commits; nothing is retried
// internally.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

var (
	ErrBelowMinimumDonation = &Error{CodeBelowMinimumDonation, "donation amount is below the minimum required"}
	ErrMessageTooLong       = &Error{CodeMessageTooLong, "message exceeds maximum length of 280 characters"}
	ErrPaused               = &Error{CodePaused, "program is currently paused"}
	ErrNotPaused            = &Error{CodeNotPaused, "program is not paused"}
	ErrOverflow             = &Error{CodeOverflow, "arithmetic overflow"}
	ErrUnauthorized         = &Error{CodeUnauthorized, "unauthorized: caller is not the authority"}
)
