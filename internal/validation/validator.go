package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator. Field errors are reported by their
// JSON names.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	return v
}

// FailedField returns the JSON name of the first failing field of a
// validation error, or "" when err carries no field errors. Fields inside
// slices report their own name ("qty"), not the slice's.
func FailedField(err error) string {
	ve, ok := err.(validatorv10.ValidationErrors)
	if !ok || len(ve) == 0 {
		return ""
	}
	return ve[0].Field()
}
