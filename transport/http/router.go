package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/minigate/ports"
	"github.com/layer-3/minigate/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, identities ports.IdentityStore, sessions ports.SessionIssuer, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	handlers := NewAuthHandlers(authService, identities, log)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/nonce", handlers.Nonce)
		auth.POST("/signin", handlers.SignIn)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(SessionMiddleware(sessions))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
