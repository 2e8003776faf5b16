package entities

// ValidationResult is the outcome of checking a manifest or a config.
type ValidationResult struct {
	Errors []ValidationError
	Valid  bool
}

// ValidationError names one rejected field and why.
type ValidationError struct {
	Field   string
	Message string
}
