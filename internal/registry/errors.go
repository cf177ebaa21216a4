package registry

// modelNotFoundError is returned when a requested model id is not present.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a not-found error for the given id.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// incompatibleError signals a model-compatibility violation: the request
// asks for a generation direction the model was not initialized for.
type incompatibleError struct{ msg string }

func (e incompatibleError) Error() string { return "incompatible request: " + e.msg }

// ErrIncompatible constructs a model-compatibility error.
func ErrIncompatible(msg string) error { return incompatibleError{msg: msg} }

// IsIncompatible reports whether err is a model-compatibility error.
func IsIncompatible(err error) bool {
	_, ok := err.(incompatibleError)
	return ok
}
