package httpadapter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors renders validator failures as client-facing field messages.
func fieldErrors(err error) (map[string]string, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[field] = fmt.Sprintf("%s is required", field)
		case "max":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		case "min", "gte":
			fields[field] = fmt.Sprintf("%s must be at least %s", field, fe.Param())
		case "lte":
			fields[field] = fmt.Sprintf("%s must be at most %s", field, fe.Param())
		default:
			fields[field] = fmt.Sprintf("%s failed %s validation", field, fe.Tag())
		}
	}
	return fields, true
}
