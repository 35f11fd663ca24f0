package httpresponse

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// APIError is the JSON body returned with every non-success status.
type APIError struct {
	ErrorMessage string `json:"error_message"`
}

func Error(error string) *APIError {
	log.Error(error)
	e := &APIError{
		ErrorMessage: error,
	}
	return e
}

func Errorf(error string, a ...interface{}) *APIError {
	return Error(fmt.Sprintf(error, a...))
}
