package apperr

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code Code
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func WrapWithCode(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or "" if none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Logger is the subset of the platform logger used to report discarded errors.
type Logger interface {
	JustLog(msg string)
}

// Ignore records that err was deliberately discarded by op. It returns true when there was
// an error to discard.
func Ignore(log Logger, op string, err error) bool {
	if err == nil {
		return false
	}
	if log != nil {
		log.JustLog(fmt.Sprintf("ignored error in %s: %v", op, err))
	}
	return true
}
