package engine

import "strings"

// InvalidInputError is the only error the engine raises: a required text
// field is missing. It is always recoverable by resubmitting corrected input.
type InvalidInputError struct {
	Field string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: missing required field " + e.Field
}

func (in AnalysisInput) validate() error {
	if strings.TrimSpace(in.Asset) == "" {
		return &InvalidInputError{Field: "asset"}
	}
	if strings.TrimSpace(in.Flow) == "" {
		return &InvalidInputError{Field: "flow"}
	}
	return nil
}
