package cache

// cacheError signals a storage-layer failure (e.g., disk I/O in the
// sqlite backend). The in-memory backend never produces one.
type cacheError struct {
	op  string
	err error
}

func (e cacheError) Error() string { return "cache " + e.op + ": " + e.err.Error() }
func (e cacheError) Unwrap() error { return e.err }

// ErrCache wraps a storage failure for the given operation.
func ErrCache(op string, err error) error {
	if err == nil {
		return nil
	}
	return cacheError{op: op, err: err}
}

// IsCacheError reports whether err is a cache storage failure.
func IsCacheError(err error) bool {
	_, ok := err.(cacheError)
	return ok
}
