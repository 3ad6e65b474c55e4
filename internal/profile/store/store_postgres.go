package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"nightout/internal/auth/models"
	"nightout/internal/sentinel"
)

// PostgresStore persists profiles in the profiles table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var (
		p         models.Profile
		fullName  sql.NullString
		phone     sql.NullString
		avatarURL sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, phone, avatar_url, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &fullName, &phone, &avatarURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("select profile %s: %w", id, err)
	}
	p.FullName = fullName.String
	p.Phone = phone.String
	p.AvatarURL = avatarURL.String
	return &p, nil
}

// Upsert inserts the profile or updates it in place. Empty phone and avatar
// values leave the stored ones untouched.
func (s *PostgresStore) Upsert(ctx context.Context, profile *models.Profile) error {
	if profile == nil || profile.ID == uuid.Nil {
		return fmt.Errorf("profile without id: %w", sentinel.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, username, full_name, phone, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			phone = COALESCE(EXCLUDED.phone, profiles.phone),
			avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url),
			updated_at = EXCLUDED.updated_at
	`, profile.ID, profile.Username, profile.FullName, profile.Phone, profile.AvatarURL,
		timestampOrNow(profile.CreatedAt), timestampOrNow(profile.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", profile.ID, err)
	}
	return nil
}
