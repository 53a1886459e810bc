package helper

import "fmt"

// NewError wraps an error with the operation it occurred in. The wrapped
// error stays matchable with errors.Is/errors.As.
func NewError(context string, err error) error {
	return fmt.Errorf("error in %v: %w", context, err)
}
