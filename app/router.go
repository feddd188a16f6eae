// Package app wires the shared HTTP routes for the VoiceClone Studio API.
package app

import (
	"time"

	"github.com/Sumitkumar005/voiceclone-studio/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP router with all public and protected routes.
func NewRouter() (*gin.Engine, error) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/", Root)
	router.GET("/api/health", Health)

	// Webhook is authenticated by its signature, not a bearer token.
	router.POST("/api/billing/webhook", StripeWebhook)

	client, err := auth.NewClientFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}
	identity = client

	authGroup := router.Group("/api/auth")
	authGroup.POST("/signup", SignUp)
	authGroup.POST("/signin", SignIn)
	authGroup.POST("/signout", SignOut)
	authGroup.GET("/me", Me)

	protected := router.Group("/")
	protected.Use(auth.Middleware(client, auth.MiddlewareConfig{}))
	protected.POST("/api/voice/upload-voice", UploadVoice)
	protected.POST("/api/voice/generate", Generate)
	protected.GET("/api/voice/my-voices", MyVoices)
	protected.GET("/api/voice/my-generations", MyGenerations)
	protected.GET("/api/voice/usage", Usage)
	protected.POST("/api/billing/create-checkout", CreateCheckout)
	protected.POST("/api/billing/portal-session", CreatePortalSession)
	protected.GET("/api/billing/subscription", GetSubscription)

	return router, nil
}
