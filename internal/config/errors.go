package config

import "fmt"

// configError marks fatal configuration failures (missing file, bad syntax,
// failed validation). A run never proceeds past one of these.
type configError struct {
	path string
	msg  string
	err  error
}

func (e configError) Error() string {
	if e.path != "" {
		return fmt.Sprintf("config %s: %s", e.path, e.msg)
	}
	return "config: " + e.msg
}

func (e configError) Unwrap() error { return e.err }

// Errorf constructs a configuration error tied to a file path.
func Errorf(path, format string, args ...any) error {
	return configError{path: path, msg: fmt.Sprintf(format, args...)}
}

func wrapErr(path, msg string, err error) error {
	return configError{path: path, msg: msg + ": " + err.Error(), err: err}
}

// IsConfigError reports whether err is a fatal configuration error.
func IsConfigError(err error) bool {
	_, ok := err.(configError)
	return ok
}
