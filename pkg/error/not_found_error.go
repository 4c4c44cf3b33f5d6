package error

import (
	"errors"
	"net/http"
)

// NotFoundError is returned by repositories when a shop or record does not exist.
type NotFoundError string

func (err NotFoundError) Error() string {
	return string(err)
}

func (err NotFoundError) ErrCode() string {
	return "NOT_FOUND"
}

func (err NotFoundError) StatusCode() int {
	return http.StatusNotFound
}

// IsNotFound reports whether err, or anything it wraps, is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound NotFoundError
	return errors.As(err, &notFound)
}
