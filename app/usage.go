package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sumitkumar005/voiceclone-studio/app/config"
	"github.com/Sumitkumar005/voiceclone-studio/app/models"
)

// limits reads the configured tier and validation limits.
func limits() config.LimitsConfig {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.LimitsConfig{
			FreeTierLimit:   10,
			ProTierLimit:    500,
			MaxAudioSeconds: 30,
			MaxTextLength:   5000,
		}
	}
	return cfg.Limits
}

var errProfileNotFound = errors.New("Profile not found")

type quotaError struct {
	Limit int
	Used  int
}

func (e quotaError) Error() string {
	return "Generation limit reached. Upgrade to Pro for more."
}

// checkQuota rejects a profile that has consumed its allotment.
func checkQuota(p models.Profile) error {
	if p.GenerationsUsed >= p.GenerationsLimit {
		return quotaError{Limit: p.GenerationsLimit, Used: p.GenerationsUsed}
	}
	return nil
}

// checkUsageLimit fetches the caller's profile and rejects the request when
// the quota is spent. The snapshot is returned so callers can reuse it instead
// of re-fetching. Two concurrent requests can both pass this check before
// either increments the counter; the increment itself is atomic, so the worst
// case is one transient over-quota generation.
func checkUsageLimit(ctx context.Context, userID string) (models.Profile, error) {
	if db == nil {
		// Allow test runs without a backing DB.
		profile := models.Profile{
			UserID:           userID,
			Tier:             models.TierFree,
			GenerationsUsed:  0,
			GenerationsLimit: limits().FreeTierLimit,
		}
		return profile, checkQuota(profile)
	}

	profile, err := getProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, errProfileNotFound
		}
		return models.Profile{}, err
	}

	return profile, checkQuota(profile)
}
