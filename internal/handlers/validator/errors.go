package validator

import (
	"fmt"
	"strings"
)

// ErrInvalidRequest lists the fields which failed validation.
type ErrInvalidRequest struct {
	error
	Fields []string
}

func NewErrInvalidRequest(fields []string) *ErrInvalidRequest {
	return &ErrInvalidRequest{
		error:  fmt.Errorf("invalid request: %s", strings.Join(fields, "; ")),
		Fields: fields,
	}
}
