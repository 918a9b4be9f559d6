package global

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator turns the first validator failure into a Validation error
// with a readable message.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Validation(err.Error())
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return Validation(field + " is required")
	case "email":
		return Validation(field + " must be a valid email")
	case "min":
		return Validation(field + " must have at least " + fe.Param() + " entries")
	}
	return Validation(field + " is invalid")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// JSONFieldName reports struct fields by their json name so messages match
// the request body.
func JSONFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
