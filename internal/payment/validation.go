package payment

import (
	"strings"

	"carrierhub/pkg/errors"
	"carrierhub/pkg/model"
	"carrierhub/pkg/sanitizer"

	"github.com/go-playground/validator/v10"
)

// FormData is what the user typed into the checkout form.
type FormData struct {
	Name   string `json:"name" validate:"min=2,max=50"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"len=10,numeric"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

type ValidationResult struct {
	IsValid bool
	Errors  []string
	Fields  []errors.FieldDetail
}

var fieldMessages = map[string]string{
	"name":   "Name must be between 2 and 50 characters",
	"email":  "Please enter a valid email address",
	"phone":  "Phone number must be exactly 10 digits",
	"amount": "Amount must be greater than zero",
}

var formValidator = model.NewValidator().Engine()

// Normalize trims the name and email and reduces the phone to its national
// digits.
func (f FormData) Normalize() FormData {
	return FormData{
		Name:   sanitizer.NormalizeName(f.Name),
		Email:  sanitizer.NormalizeEmail(f.Email),
		Phone:  sanitizer.NormalizePhone(f.Phone),
		Amount: f.Amount,
	}
}

// ValidatePaymentData checks the normalized form. Every failing field
// contributes one message.
func ValidatePaymentData(f FormData) ValidationResult {
	err := formValidator.Struct(f.Normalize())
	if err == nil {
		return ValidationResult{IsValid: true}
	}

	result := ValidationResult{}
	seen := make(map[string]bool)

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		result.Errors = []string{err.Error()}
		return result
	}

	for _, fe := range validationErrs {
		field := strings.ToLower(fe.Field())
		if seen[field] {
			continue
		}
		seen[field] = true

		msg, ok := fieldMessages[field]
		if !ok {
			msg = fe.Error()
		}
		result.Errors = append(result.Errors, msg)
		result.Fields = append(result.Fields, errors.FieldDetail{Field: field, Message: msg})
	}
	return result
}

// AppError converts a failed result into a validation error.
func (v ValidationResult) AppError() *errors.AppError {
	if v.IsValid {
		return nil
	}
	return errors.Validation("Please correct the payment details", v.Fields)
}
