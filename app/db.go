package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/Sumitkumar005/voiceclone-studio/app/config"
	"github.com/Sumitkumar005/voiceclone-studio/app/models"

	_ "github.com/lib/pq"
)

var db *sql.DB

// MustInitDB initializes the global db and panics/logs fatally on error.
func MustInitDB() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		cfg.DB.Username,
		cfg.DB.Password,
		cfg.DB.URL,
		cfg.DB.Port,
		cfg.DB.Database,
	)

	d, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}

	if err := d.Ping(); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}

	log.Println("Connected to Postgres")
	db = d
}

// --- profiles ---

func insertProfile(ctx context.Context, userID, email string, limit int) error {
	if db == nil {
		// Allow test runs without a backing DB.
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, email, tier, generations_used, generations_limit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING;
	`, userID, email, models.TierFree, 0, limit)
	return err
}

func getProfile(ctx context.Context, userID string) (models.Profile, error) {
	var (
		p              models.Profile
		customerID     sql.NullString
		subscriptionID sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT email, tier, generations_used, generations_limit,
		       stripe_customer_id, stripe_subscription_id
		FROM profiles
		WHERE user_id = $1;
	`, userID).Scan(&p.Email, &p.Tier, &p.GenerationsUsed, &p.GenerationsLimit,
		&customerID, &subscriptionID)
	if err != nil {
		return models.Profile{}, err
	}
	p.UserID = userID
	p.StripeCustomerID = customerID.String
	p.StripeSubscriptionID = subscriptionID.String
	return p, nil
}

// incrementGenerationsUsed bumps the usage counter with a store-native
// increment so concurrent generations from the same user cannot lose updates.
func incrementGenerationsUsed(ctx context.Context, userID string) error {
	if db == nil {
		return nil
	}
	res, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET generations_used = generations_used + 1
		WHERE user_id = $1;
	`, userID)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func upgradeProfileToPro(ctx context.Context, userID string, limit int, customerID, subscriptionID string) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET tier = $1,
		    generations_limit = $2,
		    stripe_customer_id = $3,
		    stripe_subscription_id = $4
		WHERE user_id = $5;
	`, models.TierPro, limit, customerID, subscriptionID, userID)
	return err
}

func downgradeProfileBySubscription(ctx context.Context, subscriptionID string, limit int) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET tier = $1,
		    generations_limit = $2
		WHERE stripe_subscription_id = $3;
	`, models.TierFree, limit, subscriptionID)
	return err
}

func setStripeCustomerID(ctx context.Context, userID, customerID string) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET stripe_customer_id = $1
		WHERE user_id = $2;
	`, customerID, userID)
	return err
}

// --- voices ---

func insertVoice(ctx context.Context, v models.Voice) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO voices (id, user_id, name, storage_path, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, now());
	`, v.ID, v.UserID, v.Name, v.StoragePath, v.Duration)
	return err
}

func getVoiceForUser(ctx context.Context, voiceID, userID string) (models.Voice, error) {
	var v models.Voice
	err := db.QueryRowContext(ctx, `
		SELECT id, name, storage_path, duration, created_at
		FROM voices
		WHERE id = $1 AND user_id = $2;
	`, voiceID, userID).Scan(&v.ID, &v.Name, &v.StoragePath, &v.Duration, &v.CreatedAt)
	if err != nil {
		return models.Voice{}, err
	}
	v.UserID = userID
	return v, nil
}

func listVoicesByUser(ctx context.Context, userID string) ([]models.Voice, error) {
	if db == nil {
		return []models.Voice{}, nil
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, storage_path, duration, created_at
		FROM voices
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Voice{}
	for rows.Next() {
		var v models.Voice
		if err := rows.Scan(&v.ID, &v.Name, &v.StoragePath, &v.Duration, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.UserID = userID
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- generations ---

func insertGeneration(ctx context.Context, g models.Generation) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO generations (id, user_id, voice_id, text, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, now());
	`, g.ID, g.UserID, g.VoiceID, g.Text, g.StoragePath)
	return err
}

func listGenerationsByUser(ctx context.Context, userID string, limit int) ([]models.Generation, error) {
	if db == nil {
		return []models.Generation{}, nil
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, voice_id, text, storage_path, created_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Generation{}
	for rows.Next() {
		var g models.Generation
		if err := rows.Scan(&g.ID, &g.VoiceID, &g.Text, &g.StoragePath, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.UserID = userID
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func getStripeCustomerID(ctx context.Context, userID string) (string, error) {
	if db == nil {
		return "", sql.ErrConnDone
	}
	var customerID sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT stripe_customer_id
		FROM profiles
		WHERE user_id = $1;
	`, userID).Scan(&customerID)
	if err != nil {
		return "", err
	}
	return customerID.String, nil
}
