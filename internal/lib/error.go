package lib

import "fmt"

// WrapError allows to combine two errors so the result matches
// errors.Is for both of them. Message of the wrapped error is
// prepended with the message of the wrapper.
func WrapError(wrapper error, wrapped error) error {
	return &wrappedError{
		wrapper: wrapper,
		wrapped: wrapped,
	}
}

type wrappedError struct {
	wrapper error
	wrapped error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s", e.wrapper.Error(), e.wrapped.Error())
}

func (e *wrappedError) Is(target error) bool {
	return e.wrapper == target
}

func (e *wrappedError) Unwrap() error {
	return e.wrapped
}
