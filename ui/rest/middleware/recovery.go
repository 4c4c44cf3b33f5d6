package middleware

import (
	"errors"
	"fmt"
	"net/http"

	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	"github.com/AzielCF/az-smartfilter/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const codeInternal = "INTERNAL_SERVER_ERROR"

// Recovery renders panics raised through utils.PanicIfNeeded as a ResponseData envelope.
// Typed errors keep their status and code, anything else becomes a 500.
func Recovery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			res := responseFor(rec)
			entry := logrus.WithFields(logrus.Fields{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.Locals("requestid"),
			})
			if res.Status >= http.StatusInternalServerError {
				entry.Errorf("[REST] Panic recovered: %v", rec)
			} else {
				entry.Debugf("[REST] %s: %s", res.Code, res.Message)
			}

			_ = c.Status(res.Status).JSON(res)
		}()

		return c.Next()
	}
}

func responseFor(rec any) utils.ResponseData {
	if err, ok := rec.(error); ok {
		var generic pkgError.GenericError
		if errors.As(err, &generic) {
			return utils.ResponseData{
				Status:  generic.StatusCode(),
				Code:    generic.ErrCode(),
				Message: generic.Error(),
			}
		}
	}
	return utils.ResponseData{
		Status:  http.StatusInternalServerError,
		Code:    codeInternal,
		Message: fmt.Sprintf("%v", rec),
	}
}
