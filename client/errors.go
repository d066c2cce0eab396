package client

import "fmt"

// StatusError is returned when a backend answers outside 2xx without a
// structured body the caller could show.
type StatusError struct {
	Operation string
	Code      int
	Body      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend returned status %d", e.Operation, e.Code)
}
