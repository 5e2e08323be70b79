// Package validation wraps go-playground/validator with the error shape used
// across the storefront.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/angelmondragon/cinepass/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// Struct validates dest against its `validate` tags and returns a typed
// VALIDATION_FAILED error with per-field details.
func Struct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return FormatErrors(err, "validation failed")
	}
	return nil
}

// FormatErrors converts validator errors into a typed error keyed by field name.
func FormatErrors(err error, message string) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = Message(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
}

// Message renders a human readable reason for a failed tag.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "eqfield":
		return fmt.Sprintf("must match %s", strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "is invalid"
}
