package console

import "errors"

var (
	// ErrInvalidArgument reports a bad handler registration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownCommand reports a verb with no registered handler and no
	// matching binding.
	ErrUnknownCommand = errors.New("unknown command")
)
