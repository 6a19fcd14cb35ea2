package serverutils

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RequestValidationError lists failed fields of a request body.
type RequestValidationError struct {
	Fields map[string]string
}

func (e *RequestValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+" "+msg)
	}
	return "invalid request: " + strings.Join(parts, ", ")
}

func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "min":
			fields[fe.Field()] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max":
			fields[fe.Field()] = fmt.Sprintf("must be at most %s", fe.Param())
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return &RequestValidationError{Fields: fields}
}
