package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shoplive/internal/core/domain"
	apperrors "shoplive/pkg/errors"
)

const userIDKey = "user_id"

// Authenticator resolves a bearer token to the identity it was issued for.
type Authenticator interface {
	Authenticate(token string) (domain.UserID, error)
}

// AuthMiddleware requires a valid bearer token and stores its identity in
// the gin context.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWith(c, apperrors.NewUnauthorizedError("authorization header required"))
			return
		}

		userID, err := auth.Authenticate(header)
		if err != nil {
			abortWith(c, apperrors.WrapError(err, apperrors.ErrCodeUnauthorized, err.Error(), http.StatusUnauthorized))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// OptionalAuthMiddleware binds the identity when a valid token is present
// and lets anonymous requests through.
func OptionalAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			if userID, err := auth.Authenticate(header); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

// UserID returns the identity bound by one of the auth middlewares.
func UserID(c *gin.Context) (domain.UserID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(domain.UserID)
	return id, ok && id != ""
}

func abortWith(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.HTTPStatus, errorBody(appErr))
}
