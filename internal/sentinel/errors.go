package sentinel

import (
	"errors"
	"fmt"
)

// ErrEmptyResult is returned when the API answered successfully but without image data.
var ErrEmptyResult = errors.New("fetch returned no image data")

var errMissingCredentials = errors.New("missing OAuth client ID or client secret")

type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed, check your client ID and secret: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

type FetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("image request failed with status %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("image request failed with status %d", e.StatusCode)
	default:
		return fmt.Sprintf("image request failed: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
