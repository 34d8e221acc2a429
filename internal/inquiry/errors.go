package inquiry

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("inquiry: unauthorized")
	ErrWrongContext       = errors.New("inquiry: wrong context")
	ErrEmptySource        = errors.New("inquiry: empty source")
	ErrSessionExpired     = errors.New("inquiry: session expired")
	ErrSubmissionFailed   = errors.New("inquiry: submission failed")
	ErrNotificationFailed = errors.New("inquiry: notification failed")
	ErrStepOutOfOrder     = errors.New("inquiry: step out of order")
	ErrInvalidSelection   = errors.New("inquiry: invalid selection")
	ErrInvalidForm        = errors.New("inquiry: invalid form")
	ErrDuplicateKey       = errors.New("inquiry: duplicate session key")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrWrongContext, "WRONG_CONTEXT"},
	{ErrEmptySource, "EMPTY_SOURCE"},
	{ErrSessionExpired, "SESSION_EXPIRED"},
	{ErrSubmissionFailed, "SUBMISSION_FAILED"},
	{ErrNotificationFailed, "NOTIFICATION_FAILED"},
	{ErrStepOutOfOrder, "STEP_OUT_OF_ORDER"},
	{ErrInvalidSelection, "INVALID_SELECTION"},
	{ErrInvalidForm, "INVALID_FORM"},
}

// StepError ties a taxonomy error to the step and session it occurred in.
type StepError struct {
	Step Step
	Key  string
	Err  error
}

func (e *StepError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("inquiry %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("inquiry %s [%s]: %v", e.Step, e.Key, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Code returns a stable identifier for logs.
func (e *StepError) Code() string {
	for _, c := range errorCodes {
		if errors.Is(e.Err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}

func stepErr(step Step, key string, err error) error {
	return &StepError{Step: step, Key: key, Err: err}
}
