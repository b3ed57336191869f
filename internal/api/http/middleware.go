package http

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketmanager/internal/observability"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// retryAfterSeconds is advertised while ticket operations are suspended.
const retryAfterSeconds = "30"

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger wraps error handling so it sees the mapped status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			var domainErr *apperrors.DomainError
			if fiberErr, ok := err.(*fiber.Error); ok {
				domainErr = apperrors.NewDomainError(fiberStatusCode(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil)
			} else {
				domainErr = apperrors.ToDomainError(err)
			}
			metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)

			body := fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}
			switch domainErr.Code {
			case apperrors.CodeConversionInProgress, apperrors.CodeConversionFailure:
				c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
			}
			if domainErr.HTTPStatus >= 500 {
				logger.Error("request failed",
					zap.String("code", domainErr.Code),
					zap.String("path", c.Path()),
					zap.Error(domainErr))
			}
			err = c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
		}()
		return c.Next()
	}
}

func fiberStatusCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return apperrors.CodeNotFound
	case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		return apperrors.CodeInvalidInput
	}
	return apperrors.CodeInternal
}
