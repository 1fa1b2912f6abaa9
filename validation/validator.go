// Package validation validates decoded request bodies with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kevinaaaquil/bookclub/apperr"
)

const (
	MsgMissingFields = "Missing fields"
	MsgInvalidData   = "Invalid data"
)

// Validator wraps validator.Validate and converts failures to apperr validation errors.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	// report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate checks s. The returned error is an *apperr.Error with per-field
// details. Its message is "Missing fields" when only required fields are
// absent and "Invalid data" otherwise.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Validation(MsgInvalidData)
	}
	msg := MsgMissingFields
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = message(fe)
		if fe.Tag() != "required" {
			msg = MsgInvalidData
		}
	}
	return apperr.ValidationWithDetails(msg, details)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", fe.Param())
		}
		return "must not exceed " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}
