package selection

// noModelAvailableError signals that no catalog model satisfied any
// preference tier. Surfaced to the caller, never silently defaulted.
type noModelAvailableError struct {
	role string
	task string
}

func (e noModelAvailableError) Error() string {
	return "no model available for role=" + e.role + " task=" + e.task
}

// ErrNoModelAvailable constructs a noModelAvailableError.
func ErrNoModelAvailable(role, task string) error {
	return noModelAvailableError{role: role, task: task}
}

// IsNoModelAvailable reports whether err indicates an empty selection.
func IsNoModelAvailable(err error) bool {
	_, ok := err.(noModelAvailableError)
	return ok
}

// unknownPolicyKeyError signals a role or task kind the policy was never
// configured for. Caller logic error.
type unknownPolicyKeyError struct {
	what string
	key  string
}

func (e unknownPolicyKeyError) Error() string { return "unknown " + e.what + ": " + e.key }

// ErrUnknownPolicyKey constructs an unknownPolicyKeyError.
func ErrUnknownPolicyKey(what, key string) error {
	return unknownPolicyKeyError{what: what, key: key}
}

// IsUnknownPolicyKey reports whether err indicates an unconfigured role
// or task kind.
func IsUnknownPolicyKey(err error) bool {
	_, ok := err.(unknownPolicyKeyError)
	return ok
}
