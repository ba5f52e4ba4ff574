package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "shoplive/pkg/errors"
)

// ErrorHandlerMiddleware renders the last error attached with c.Error as a
// JSON body. Domain sentinels are mapped to their status codes.
func ErrorHandlerMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr := apperrors.FromDomain(err)

		fields := []interface{}{
			"code", appErr.Code,
			"status", appErr.HTTPStatus,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", err,
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Errorw("Request failed", fields...)
		} else {
			logger.Debugw("Request rejected", fields...)
		}

		c.JSON(appErr.HTTPStatus, errorBody(appErr))
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response.
func RecoveryMiddleware(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("Panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				abortWith(c, apperrors.NewInternalError("internal error"))
			}
		}()
		c.Next()
	}
}

func errorBody(appErr *apperrors.AppError) gin.H {
	body := gin.H{
		"error":   string(appErr.Code),
		"message": appErr.Message,
	}
	if len(appErr.Context) > 0 {
		body["details"] = appErr.Context
	}
	return body
}
