package event

import "fmt"

type missingFieldError struct {
	fields string
}

func (e *missingFieldError) Error() string {
	return fmt.Sprintf("missing required %s", e.fields)
}

func errMissing(fields string) error {
	return &missingFieldError{fields: fields}
}
