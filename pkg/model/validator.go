package model

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"carrierhub/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Validator checks request payloads before they leave the client and
// reports failures with json field names so they line up with the
// backend's own details array.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("consultant_type", func(fl validator.FieldLevel) bool {
		return ConsultantType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("booking_status", func(fl validator.FieldLevel) bool {
		return BookingStatus(fl.Field().String()).Valid()
	})

	return &Validator{validate: v}
}

// Engine exposes the underlying validator so other packages can register
// their own tags.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// Struct validates s and returns a validation AppError or nil.
func (v *Validator) Struct(s any) *errors.AppError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return errors.Internal("validation could not run", err)
	}
	return errors.Validation("Validation failed", TranslateValidationErrors(validationErrs))
}

func TranslateValidationErrors(errs validator.ValidationErrors) []errors.FieldDetail {
	details := make([]errors.FieldDetail, 0, len(errs))

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "numeric":
			message = fmt.Sprintf("%s must contain digits only", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "consultant_type":
			message = fmt.Sprintf("%s must be a known consultation category", err.Field())
		case "booking_status":
			message = fmt.Sprintf("%s must be a valid booking status", err.Field())
		}

		details = append(details, errors.FieldDetail{
			Field:   err.Field(),
			Message: message,
		})
	}

	return details
}
