package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-audio/wav"
)

// isAudioContentType accepts any audio/* content type.
func isAudioContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "audio/")
}

// wavDuration returns the duration in seconds of the WAV file at path.
func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("failed to read audio: not a valid WAV file")
	}

	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read audio: %w", err)
	}
	return d.Seconds(), nil
}
