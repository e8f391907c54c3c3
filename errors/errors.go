package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrBlankSender = fmt.Errorf("message sender cannot be blank")
	ErrEmptyWords  = fmt.Errorf("no moderation words have been found")
)
