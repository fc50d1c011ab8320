package errors

import "fmt"

// Reasons reported by the validator.
const (
	ReasonNameRequired    = "Field name is required"
	ReasonDefaultRequired = "Default value is required"
	ReasonNestedEmpty     = "Nested field must have at least one child field"
)

// ValidationError is a user-input problem found at one field.
// Path is a display label such as "Field 2 > Nested[0]", not a structural key.
type ValidationError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Error renders the message shown to the user
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}
