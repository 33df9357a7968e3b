package serrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BaseError is a coded error. Two BaseErrors match under errors.Is when their codes match.
type BaseError struct {
	Code      string
	Message   string
	LocaleKey string
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{Code: code, Message: message, LocaleKey: localeKey}
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) Is(target error) bool {
	var t *BaseError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Code extracts the code of the first BaseError in err's chain.
func Code(err error) string {
	var be *BaseError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ProcessValidatorErrors flattens validator output into field -> message.
func ProcessValidatorErrors(errs validator.ValidationErrors, fieldName func(string) string) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fe := range errs {
		name := fe.Field()
		if fieldName != nil {
			if mapped := fieldName(fe.Field()); mapped != "" {
				name = mapped
			}
		}
		switch fe.Tag() {
		case "required":
			out[name] = "is required"
		case "min":
			out[name] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max":
			out[name] = fmt.Sprintf("must be at most %s", fe.Param())
		default:
			out[name] = fmt.Sprintf("failed %q validation", fe.Tag())
		}
	}
	return out
}
