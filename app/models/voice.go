package models

import "time"

type Voice struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	StoragePath string    `json:"storage_path"`
	Duration    float64   `json:"duration"`
	CreatedAt   time.Time `json:"created_at"`
}

type Generation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	VoiceID     string    `json:"voice_id"`
	Text        string    `json:"text"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`

	// DownloadURL is filled in per-response with a fresh presigned URL; it is
	// never stored.
	DownloadURL string `json:"download_url,omitempty"`
}
