package errors

import (
	stderrors "errors"
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrForbidden, "forbidden"},
	{ErrNotFound, "not_found"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrNotEligible, "not_eligible"},
	{ErrDuplicateApplication, "duplicate_application"},
	{ErrAccountBlocked, "account_blocked"},
	{ErrInvalidState, "invalid_state"},
	{ErrInvalidInput, "invalid_input"},
}

// Kind names the error kind of err for metrics and logs: "ok" for nil,
// "internal" for anything that is not one of the sentinels.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
