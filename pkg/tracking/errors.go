package tracking

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRouteNotFound   = errors.New("route not found")
)

// QueryError is a backing store read failure
type QueryError struct {
	Path string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("querying %s: %s", e.Path, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
