package manager

// duplicateModelError signals registration of an id that already exists
// with a different descriptor. Caller logic error; not retryable.
type duplicateModelError struct{ id string }

func (e duplicateModelError) Error() string { return "duplicate model: " + e.id }

// ErrDuplicateModel constructs a duplicateModelError.
func ErrDuplicateModel(id string) error { return duplicateModelError{id: id} }

// IsDuplicateModel reports whether err indicates a conflicting registration.
func IsDuplicateModel(err error) bool {
	_, ok := err.(duplicateModelError)
	return ok
}

// unknownModelError signals a reference to an id absent from the catalog.
type unknownModelError struct{ id string }

func (e unknownModelError) Error() string { return "model not found: " + e.id }

// ErrUnknownModel constructs an unknownModelError.
func ErrUnknownModel(id string) error { return unknownModelError{id: id} }

// IsUnknownModel reports whether err indicates a missing model id.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// loadError signals adapter construction/initialization failure. The
// model remains Registered; the caller may retry.
type loadError struct {
	id  string
	err error
}

func (e loadError) Error() string { return "load " + e.id + ": " + e.err.Error() }
func (e loadError) Unwrap() error { return e.err }

// ErrLoad wraps an adapter load failure for id.
func ErrLoad(id string, err error) error { return loadError{id: id, err: err} }

// IsLoadError reports whether err indicates a failed model load.
func IsLoadError(err error) bool {
	_, ok := err.(loadError)
	return ok
}

// adapterError signals an inference call failure, timeouts included.
// Retryable by the caller.
type adapterError struct {
	id  string
	err error
}

func (e adapterError) Error() string { return "adapter " + e.id + ": " + e.err.Error() }
func (e adapterError) Unwrap() error { return e.err }

// ErrAdapter wraps an inference failure for id.
func ErrAdapter(id string, err error) error { return adapterError{id: id, err: err} }

// IsAdapterError reports whether err indicates a failed inference call.
func IsAdapterError(err error) bool {
	_, ok := err.(adapterError)
	return ok
}

// modelInUseError signals an operation that needs the model unloaded
// (replace, unregister) while holders still exist.
type modelInUseError struct{ id string }

func (e modelInUseError) Error() string { return "model in use: " + e.id }

// ErrModelInUse constructs a modelInUseError.
func ErrModelInUse(id string) error { return modelInUseError{id: id} }

// IsModelInUse reports whether err indicates an operation blocked by a
// loaded model.
func IsModelInUse(err error) bool {
	_, ok := err.(modelInUseError)
	return ok
}
