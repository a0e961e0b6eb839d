package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors is keyed by form field name
type FieldErrors map[string]string

// Translate turns a binding error on form into per-field messages. Errors that
// are not validation failures (malformed body, wrong types) land under "form".
func Translate(form any, err error) FieldErrors {
	out := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["form"] = "Invalid request"
		return out
	}
	t := reflect.TypeOf(form)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range verrs {
		name := fe.Field()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if tag := strings.Split(sf.Tag.Get("form"), ",")[0]; tag != "" {
				name = tag
			}
		}
		if _, exists := out[name]; !exists {
			out[name] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "eqfield":
		return "Field must be equal to password."
	case "datetime":
		return "Not a valid date value."
	default:
		return "Invalid value."
	}
}
