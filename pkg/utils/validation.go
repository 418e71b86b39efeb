package utils

// ValidationError reports a rejected input field. Its message is safe to
// show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
