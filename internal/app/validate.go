package app

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate     = validator.New()
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// checkStruct runs struct tag validation and folds failures into ErrInvalidInput.
func checkStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return invalidInput(err)
	}
	return nil
}

// checkField validates a single value against tag, naming it field in errors.
func checkField(field, value, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidInput, describe(field, verrs[0]))
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, field, err)
	}
	return nil
}

func checkEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describe(strings.ToLower(verrs[0].Field()), verrs[0]))
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte", "lte":
		return field + " out of range"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
