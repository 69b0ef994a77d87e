package config

import "fmt"

// Error is a configuration problem tied to the key and the source it was read from.
type Error struct {
	Key    string
	Source string
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s: %s", e.Source, e.Key, e.Msg)
}

func NewError(source, key, format string, args ...any) *Error {
	return &Error{Key: key, Source: source, Msg: fmt.Sprintf(format, args...)}
}
