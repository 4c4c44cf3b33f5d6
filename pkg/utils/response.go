package utils

import (
	"errors"

	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
)

type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// PanicIfNeeded panics with err so the recovery middleware can render it.
func PanicIfNeeded(err any) {
	if err != nil {
		if e, ok := err.(error); ok {
			var generic pkgError.GenericError
			if errors.As(e, &generic) {
				panic(generic)
			}
		}
		panic(err)
	}
}
