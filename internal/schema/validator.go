// Package schema validates outbound request payloads before they reach
// the network.
package schema

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps a single validator instance; safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a request validator.
func New() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate checks struct tags on the given payload. Returns the
// validator's error describing the first failing constraint.
func (v *Validator) Validate(payload any) error {
	return v.validate.Struct(payload)
}
