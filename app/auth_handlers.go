package app

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/Sumitkumar005/voiceclone-studio/app/models"
	"github.com/Sumitkumar005/voiceclone-studio/auth"

	"github.com/gin-gonic/gin"
)

// identity is the shared identity-provider client, wired by NewRouter.
var identity *auth.Client

// Root is the public API banner.
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "VoiceClone Studio API",
		"version": "1.0.0",
	})
}

// Health is a public health check endpoint. It reports the TTS engine status
// so operators can tell a degraded process from a healthy one.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"engine": engine.Status(),
	})
}

// SignUp registers a new account with the identity provider and creates the
// free-tier profile row.
func SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if identity == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}

	principal, session, err := identity.SignUp(req.Email, req.Password)
	if err != nil {
		log.Printf("signup failed email=%s err=%v", req.Email, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := insertProfile(c.Request.Context(), principal.ID, req.Email, limits().FreeTierLimit); err != nil {
		log.Printf("profile insert failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    gin.H{"id": principal.ID, "email": principal.Email},
		"session": session,
	})
}

// SignIn exchanges credentials for a session.
func SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if identity == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}

	principal, session, err := identity.SignIn(req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    gin.H{"id": principal.ID, "email": principal.Email},
		"session": session,
	})
}

// SignOut revokes the caller's session when a token is supplied; the response
// is the same either way.
func SignOut(c *gin.Context) {
	if identity != nil {
		if token, ok := auth.ExtractBearerToken(c.GetHeader("Authorization")); ok {
			if err := identity.SignOut(token); err != nil {
				log.Printf("signout failed: %v", err)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out successfully"})
}

// Me resolves a token passed as a query parameter and returns the user with
// their profile.
func Me(c *gin.Context) {
	token := c.Query("token")
	if token == "" || identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	principal, err := identity.UserFromToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	if db == nil {
		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{"id": principal.ID, "email": principal.Email},
			"profile": models.Profile{
				UserID:           principal.ID,
				Email:            principal.Email,
				Tier:             models.TierFree,
				GenerationsLimit: limits().FreeTierLimit,
			},
		})
		return
	}

	profile, err := getProfile(c.Request.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		log.Printf("profile lookup failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    gin.H{"id": principal.ID, "email": principal.Email},
		"profile": profile,
	})
}
