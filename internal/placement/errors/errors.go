package errors

import (
	"fmt"
)

var (
	ErrForbidden            = fmt.Errorf("forbidden")
	ErrNotFound             = fmt.Errorf("not found")
	ErrInvalidTransition    = fmt.Errorf("invalid transition")
	ErrNotEligible          = fmt.Errorf("not eligible")
	ErrDuplicateApplication = fmt.Errorf("duplicate application")
	ErrAccountBlocked       = fmt.Errorf("account blocked")
	ErrInvalidState         = fmt.Errorf("invalid state")
	ErrInvalidInput         = fmt.Errorf("invalid input")
)
