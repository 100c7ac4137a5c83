package teamcity

import (
	"errors"
	"fmt"
)

// ErrConnectivity is the sentinel wrapped by every ConnectivityError.
var ErrConnectivity = errors.New("cannot reach TeamCity")

// ConnectivityError reports that the server could not be reached or
// refused the credentials. It is never retried.
type ConnectivityError struct {
	URL string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	Err    error
}

func (e *ConnectivityError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s at %s: server answered %d: %v", ErrConnectivity, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", ErrConnectivity, e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() []error { return []error{ErrConnectivity, e.Err} }

// DuplicateNameError reports that a project with the target name already exists.
type DuplicateNameError struct {
	Name string
	ID   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a project named %q already exists on the server (id %s); enable replace mode to recreate it", e.Name, e.ID)
}

// APIError is a non-2xx answer to a provisioning request.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// ErrEmptyResult is returned when the server answered 2xx without the
// identifier of the entity it was asked to create.
var ErrEmptyResult = errors.New("server returned no entity id")
