package ports

import (
	"github.com/gin-gonic/gin"
)

// HTTPHandler is a group of read-only REST endpoints mounted under /api/v1.
type HTTPHandler interface {
	RegisterRoutes(rg *gin.RouterGroup)
}
