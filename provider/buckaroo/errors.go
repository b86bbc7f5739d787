package buckaroo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidOption marks usage errors raised before any network call.
	ErrInvalidOption = errors.New("buckaroo: invalid option")

	// ErrBICLookup is returned when a BIC cannot be resolved, not even through the gateway.
	ErrBICLookup = errors.New("buckaroo: bic lookup failed")

	// ErrInvalidSignature is returned for pushes whose signature does not verify.
	ErrInvalidSignature = errors.New("buckaroo: invalid signature")
)

// ValidationError describes a rejected option.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("buckaroo: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidOption
}

func invalidOption(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateOptions runs the struct tags and reports the first failure.
func validateOptions(opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalidOption(field, "is required")
	case "max":
		return invalidOption(field, fmt.Sprintf("should be max %s chars long", fe.Param()))
	case "oneof":
		return invalidOption(field, "should be one of "+strings.Join(strings.Fields(fe.Param()), ", "))
	case "eq":
		return invalidOption(field, "should be "+fe.Param())
	case "url":
		return invalidOption(field, "should be an absolute URL")
	default:
		return invalidOption(field, fmt.Sprintf("failed on %s", fe.Tag()))
	}
}
