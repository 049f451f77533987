package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// accountService implements AccountService.
type accountService struct {
	userRepo repository.UserRepository
	carts    CartService
	checkout CheckoutService
	tokens   *auth.Tokens
	params   auth.Params
	logger   zerolog.Logger
}

// NewAccountService creates a new account service. Passwords are hashed with params.
func NewAccountService(
	userRepo repository.UserRepository,
	carts CartService,
	checkout CheckoutService,
	tokens *auth.Tokens,
	params auth.Params,
	logger zerolog.Logger,
) AccountService {
	return &accountService{
		userRepo: userRepo,
		carts:    carts,
		checkout: checkout,
		tokens:   tokens,
		params:   params,
		logger:   logger.With().Str("service", "account").Logger(),
	}
}

// Register creates a user and an empty profile in one transaction.
func (s *accountService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := auth.HashPassword(req.Password, s.params)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		CreatedAt:    time.Now().UTC(),
	}

	err = inTx(ctx, s.userRepo, s.logger, func(tx pgx.Tx) error {
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return err
		}
		return s.userRepo.CreateProfile(ctx, tx, &model.Profile{UserID: user.ID})
	})
	if err != nil {
		if model.KindOf(err) == model.KindConflict {
			s.logger.Debug().Str("username", user.Username).Msg("registration rejected, account exists")
			return nil, err
		}
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login verifies credentials, issues a token and adopts the anonymous cart and
// checkout draft of sessionToken. A failed handover is logged and does not fail the login.
func (s *accountService) Login(ctx context.Context, req *model.LoginRequest, sessionToken string) (*model.LoginResponse, error) {
	login := strings.TrimSpace(req.Login)

	user, err := s.userRepo.FindByLogin(ctx, login)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to look up user")
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	if user == nil {
		s.logger.Debug().Str("login", login).Msg("login rejected, unknown user")
		return nil, model.ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("stored password hash unreadable")
		return nil, fmt.Errorf("failed to log in: %w", err)
	}
	if !ok {
		s.logger.Debug().Str("user_id", user.ID.String()).Msg("login rejected, wrong password")
		return nil, model.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue token")
		return nil, fmt.Errorf("failed to log in: %w", err)
	}

	if err := s.carts.MergeOnLogin(ctx, sessionToken, user.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("anonymous cart left unmerged")
	}
	if err := s.checkout.AdoptDraft(ctx, sessionToken, user.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("checkout draft left with session")
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return &model.LoginResponse{Token: token, ExpiresAt: expires, User: *user}, nil
}
