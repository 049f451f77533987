package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, created_at`

// userRepository implements the UserRepository interface using PostgreSQL.
type userRepository struct {
	store
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool, logger zerolog.Logger) UserRepository {
	return &userRepository{store: newStore(pool, logger, "user")}
}

func (r *userRepository) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query user")
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// Create inserts a user.
func (r *userRepository) Create(ctx context.Context, tx pgx.Tx, u *model.User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return model.ErrAccountExists
		}
		r.logger.Error().Err(err).Str("username", u.Username).Msg("failed to create user")
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug().Str("user_id", u.ID.String()).Msg("user created")
	return nil
}

// CreateProfile inserts the user's profile.
func (r *userRepository) CreateProfile(ctx context.Context, tx pgx.Tx, p *model.Profile) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO profiles (user_id, phone, default_address, default_city, default_state,
			default_postal_code, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.UserID, p.Phone, p.DefaultAddress, p.DefaultCity, p.DefaultState, p.DefaultPostalCode, p.EmailVerified)
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", p.UserID.String()).Msg("failed to create profile")
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// FindByLogin looks a user up by username or case-insensitive email.
func (r *userRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	return r.getUser(ctx, "username = $1 OR LOWER(email) = LOWER($1) ORDER BY username = $1 DESC LIMIT 1", login)
}

// GetByID returns a user, or nil when absent.
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getUser(ctx, "id = $1", id)
}

// GetProfile returns the user's profile, or nil when absent.
func (r *userRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var p model.Profile
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, phone, default_address, default_city, default_state,
			default_postal_code, email_verified
		FROM profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Phone, &p.DefaultAddress, &p.DefaultCity, &p.DefaultState,
		&p.DefaultPostalCode, &p.EmailVerified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query profile")
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	return &p, nil
}
