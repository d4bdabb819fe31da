package shared

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ValidationMessages flattens validator errors into a field -> message map.
// messages is keyed by "Field.tag"; unmatched errors fall back to the validator text.
func ValidationMessages(err error, messages map[string]string) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out["general"] = err.Error()
		return out
	}
	for _, fieldErr := range fieldErrs {
		if _, seen := out[fieldErr.Field()]; seen {
			continue
		}
		if msg, ok := messages[fieldErr.Field()+"."+fieldErr.Tag()]; ok {
			out[fieldErr.Field()] = msg
			continue
		}
		out[fieldErr.Field()] = fieldErr.Error()
	}
	return out
}
