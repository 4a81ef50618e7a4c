package driver

import "fmt"

// ConfigError reports an invalid receiver or server setting.
type ConfigError struct {
	Field string
	msg   string
}

func NewConfigError(field, msg string) *ConfigError {
	return &ConfigError{Field: field, msg: msg}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.msg)
}

// RuntimeError reports a missing or unusable SDR tool binary.
type RuntimeError struct {
	msg string
}

func NewRuntimeError(msg string) *RuntimeError {
	return &RuntimeError{msg}
}

func (e *RuntimeError) Error() string {
	return e.msg
}
