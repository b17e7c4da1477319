// Package validation provides common validation utilities for configuration
// parameters and call arguments across the dripflow library.
//
// Every helper returns a *errors.ValidationError, which matches
// errors.ErrInvalidArgument under errors.Is.
package validation
