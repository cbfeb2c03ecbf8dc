package httpapi

import (
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// validationResponse maps each failed field (by JSON name) to the rule it broke.
func validationResponse(verrs validator.ValidationErrors) ErrorResponse {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return ErrorResponse{Error: "validation failed", Fields: fields}
}
