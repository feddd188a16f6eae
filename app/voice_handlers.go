package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/Sumitkumar005/voiceclone-studio/app/config"
	"github.com/Sumitkumar005/voiceclone-studio/app/models"
	"github.com/Sumitkumar005/voiceclone-studio/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const generationsPageSize = 50

// UploadVoice accepts a reference audio sample, validates it, and stores it
// for later cloning.
func UploadVoice(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	voiceName := c.PostForm("voice_name")
	if voiceName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing voice_name"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file"})
		return
	}
	defer file.Close()

	if !isAudioContentType(header.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be audio"})
		return
	}

	audioData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("LoadConfig failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load config"})
		return
	}

	// Stage to a scratch file so the duration can be measured; removed on
	// every exit path.
	scratchPath, cleanup, err := newScratchFile("upload")
	if err != nil {
		log.Printf("scratch create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage upload"})
		return
	}
	defer cleanup()

	if err := os.WriteFile(scratchPath, audioData, 0o600); err != nil {
		log.Printf("scratch write failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage upload"})
		return
	}

	duration, err := wavDuration(scratchPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if duration > float64(cfg.Limits.MaxAudioSeconds) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Audio must be under %ds", cfg.Limits.MaxAudioSeconds),
		})
		return
	}

	voiceID := uuid.NewString()
	storagePath := fmt.Sprintf("%s/voices/%s.wav", principal.ID, voiceID)

	if err := uploadObject(c.Request.Context(), cfg.Storage.VoiceBucket, storagePath, audioData, "audio/wav"); err != nil {
		log.Printf("voice upload failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	voice := models.Voice{
		ID:          voiceID,
		UserID:      principal.ID,
		Name:        voiceName,
		StoragePath: storagePath,
		Duration:    duration,
	}
	if err := insertVoice(c.Request.Context(), voice); err != nil {
		log.Printf("voice insert failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"voice_id": voiceID,
		"name":     voiceName,
		"message":  "Voice sample uploaded successfully",
	})
}

// Generate synthesizes speech from text conditioned on one of the caller's
// stored voice samples.
func Generate(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	voiceID := c.PostForm("voice_id")
	text := c.PostForm("text")
	if voiceID == "" || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing voice_id or text"})
		return
	}

	ctx := c.Request.Context()

	profile, err := checkUsageLimit(ctx, principal.ID)
	if err != nil {
		var quotaErr quotaError
		switch {
		case errors.As(err, &quotaErr):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, errProfileNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			log.Printf("usage check failed user=%s err=%v", principal.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("LoadConfig failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load config"})
		return
	}

	if len(text) > cfg.Limits.MaxTextLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Text too long (max %d chars)", cfg.Limits.MaxTextLength),
		})
		return
	}

	voice, err := fetchVoiceScoped(ctx, voiceID, principal.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Voice not found"})
			return
		}
		log.Printf("voice lookup failed user=%s voice=%s err=%v", principal.ID, voiceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sampleData, err := downloadObject(ctx, cfg.Storage.VoiceBucket, voice.StoragePath)
	if err != nil {
		log.Printf("sample download failed path=%s err=%v", voice.StoragePath, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	refPath, cleanupRef, err := newScratchFile("voice")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage sample"})
		return
	}
	defer cleanupRef()
	if err := os.WriteFile(refPath, sampleData, 0o600); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage sample"})
		return
	}

	outPath, cleanupOut, err := newScratchFile("output")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stage output"})
		return
	}
	defer cleanupOut()

	// Blocking synthesis; runs on a bounded engine worker slot.
	if err := engine.CloneAndGenerate(ctx, refPath, text, outPath); err != nil {
		log.Printf("generation failed user=%s voice=%s err=%v", principal.ID, voiceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outputData, err := os.ReadFile(outPath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read generated audio"})
		return
	}

	generationID := uuid.NewString()
	storagePath := fmt.Sprintf("%s/generations/%s.wav", principal.ID, generationID)

	if err := uploadObject(ctx, cfg.Storage.GeneratedBucket, storagePath, outputData, "audio/wav"); err != nil {
		log.Printf("generated upload failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	gen := models.Generation{
		ID:          generationID,
		UserID:      principal.ID,
		VoiceID:     voiceID,
		Text:        text,
		StoragePath: storagePath,
	}
	if err := insertGeneration(ctx, gen); err != nil {
		log.Printf("generation insert failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := incrementGenerationsUsed(ctx, principal.ID); err != nil {
		log.Printf("usage increment failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	downloadURL, err := presignDownload(ctx, cfg.Storage.GeneratedBucket, storagePath)
	if err != nil {
		log.Printf("presign failed path=%s err=%v", storagePath, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation_id":         generationID,
		"download_url":          downloadURL,
		"text":                  text,
		"generations_remaining": profile.GenerationsLimit - profile.GenerationsUsed - 1,
	})
}

// fetchVoiceScoped reads a voice sample owned by userID. A voice belonging to
// someone else is indistinguishable from a missing one.
func fetchVoiceScoped(ctx context.Context, voiceID, userID string) (models.Voice, error) {
	if db == nil {
		return models.Voice{}, sql.ErrNoRows
	}
	return getVoiceForUser(ctx, voiceID, userID)
}

// MyVoices lists the caller's voice samples, newest first.
func MyVoices(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	voices, err := listVoicesByUser(c.Request.Context(), principal.ID)
	if err != nil {
		log.Printf("voice list failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"voices": voices})
}

// MyGenerations lists the caller's newest generations with fresh download
// URLs.
func MyGenerations(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load config"})
		return
	}

	generations, err := listGenerationsByUser(c.Request.Context(), principal.ID, generationsPageSize)
	if err != nil {
		log.Printf("generation list failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for i := range generations {
		url, err := presignDownload(c.Request.Context(), cfg.Storage.GeneratedBucket, generations[i].StoragePath)
		if err != nil {
			log.Printf("presign failed path=%s err=%v", generations[i].StoragePath, err)
			continue
		}
		generations[i].DownloadURL = url
	}

	c.JSON(http.StatusOK, gin.H{"generations": generations})
}

// Usage returns the caller's quota snapshot.
func Usage(c *gin.Context) {
	principal, ok := auth.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	if db == nil {
		free := limits().FreeTierLimit
		c.JSON(http.StatusOK, gin.H{
			"tier":                  models.TierFree,
			"generations_used":      0,
			"generations_limit":     free,
			"generations_remaining": free,
		})
		return
	}

	profile, err := getProfile(c.Request.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found. Please contact support."})
			return
		}
		log.Printf("usage lookup failed user=%s err=%v", principal.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":                  profile.Tier,
		"generations_used":      profile.GenerationsUsed,
		"generations_limit":     profile.GenerationsLimit,
		"generations_remaining": profile.Remaining(),
	})
}
