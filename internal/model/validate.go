package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance with the listing rules
// registered. validator.Validate is safe for concurrent use.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("listing_category", func(fl validator.FieldLevel) bool {
			return slices.Contains(ListingCategories, fl.Field().String())
		})
		_ = validate.RegisterValidation("listing_size", func(fl validator.FieldLevel) bool {
			return slices.Contains(ListingSizes, fl.Field().String())
		})
	})
	return validate
}

// ValidateDraft checks a listing draft against the listing form rules.
// Failures are reported as ErrCodeValidationRejected.
func ValidateDraft(d ListingDraft) error {
	err := Validator().Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return NewValidationError("validate_listing", err.Error(), err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, translateFieldError(fe))
	}
	return NewValidationError("validate_listing", strings.Join(messages, "; "), err)
}

func translateFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, formatPriceParam(fe.Param()))
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, formatPriceParam(fe.Param()))
	case "listing_category":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(ListingCategories, ", "))
	case "listing_size":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(ListingSizes, ", "))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// formatPriceParam renders a cents validator parameter as a price.
func formatPriceParam(param string) string {
	var cents int64
	if _, err := fmt.Sscan(param, &cents); err != nil {
		return param
	}
	return FormatPrice(cents)
}
