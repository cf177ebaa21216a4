package backend

// generateError wraps an inference-library failure so it can be told apart
// from orchestration errors. Backend failures are recorded per pair by the
// runner and never abort the matrix.
type generateError struct {
	backend string
	msg     string
	err     error
}

func (e generateError) Error() string { return e.backend + ": " + e.msg }

func (e generateError) Unwrap() error { return e.err }

func errf(backend, msg string, err error) error {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return generateError{backend: backend, msg: msg, err: err}
}

// IsGenerateError reports whether err came from an inference binding.
func IsGenerateError(err error) bool {
	_, ok := err.(generateError)
	return ok
}

// unavailableError signals a backend that is not built into this binary
// (e.g. the in-process llama adapter without the 'llama' build tag).
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing runtime dependency.
func IsUnavailable(err error) bool {
	_, ok := err.(unavailableError)
	return ok
}
