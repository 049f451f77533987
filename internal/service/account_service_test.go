package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fastParams keeps argon2 cheap in tests.
var fastParams = auth.Params{Memory: 8 * 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

type accountMocks struct {
	users    *MockUserRepository
	carts    *MockCartService
	checkout *MockCheckoutService
}

func newTestAccountService() (AccountService, *MockUserRepository, *MockCartService, *auth.Tokens) {
	svc, m, tokens := newTestAccountServiceWithMocks()
	return svc, m.users, m.carts, tokens
}

func newTestAccountServiceWithMocks() (AccountService, *accountMocks, *auth.Tokens) {
	m := &accountMocks{
		users:    new(MockUserRepository),
		carts:    new(MockCartService),
		checkout: new(MockCheckoutService),
	}
	m.checkout.On("AdoptDraft", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	tokens := auth.NewTokens("test-secret-test-secret-test-secret", time.Hour)
	return NewAccountService(m.users, m.carts, m.checkout, tokens, fastParams, zerolog.Nop()), m, tokens
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newTestAccountService()
	tx := committingTx(ctx)

	users.On("BeginTx", ctx).Return(tx, nil)
	users.On("Create", ctx, tx, mock.MatchedBy(func(u *model.User) bool {
		ok, err := auth.VerifyPassword("correct horse", u.PasswordHash)
		return err == nil && ok && u.Email == "ana@example.com" && u.Username == "ana"
	})).Return(nil)
	users.On("CreateProfile", ctx, tx, mock.AnythingOfType("*model.Profile")).Return(nil)

	user, err := svc.Register(ctx, &model.RegisterRequest{
		Username: " ana ",
		Email:    "Ana@Example.com",
		Password: "correct horse",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.NotContains(t, user.PasswordHash, "correct horse")
	users.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestAccountService_Register_Taken(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newTestAccountService()
	tx := rollingBackTx(ctx)

	users.On("BeginTx", ctx).Return(tx, nil)
	users.On("Create", ctx, tx, mock.AnythingOfType("*model.User")).Return(model.ErrAccountExists)

	_, err := svc.Register(ctx, &model.RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "password1"})

	assert.ErrorIs(t, err, model.ErrAccountExists)
	users.AssertNotCalled(t, "CreateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountService_Login(t *testing.T) {
	ctx := context.Background()

	hash, err := auth.HashPassword("correct horse", fastParams)
	require.NoError(t, err)
	user := &model.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com", PasswordHash: hash}

	t.Run("success merges the anonymous cart", func(t *testing.T) {
		svc, users, carts, tokens := newTestAccountService()
		users.On("FindByLogin", ctx, "ana@example.com").Return(user, nil)
		carts.On("MergeOnLogin", ctx, "tok", user.ID).Return(nil)

		resp, err := svc.Login(ctx, &model.LoginRequest{Login: " ana@example.com ", Password: "correct horse"}, "tok")

		require.NoError(t, err)
		subject, err := tokens.Parse(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, subject)
		assert.True(t, resp.ExpiresAt.After(time.Now()))
		carts.AssertExpectations(t)
	})

	t.Run("merge failure does not block login", func(t *testing.T) {
		svc, users, carts, _ := newTestAccountService()
		users.On("FindByLogin", ctx, "ana").Return(user, nil)
		carts.On("MergeOnLogin", ctx, "tok", user.ID).Return(errors.New("deadlock"))

		resp, err := svc.Login(ctx, &model.LoginRequest{Login: "ana", Password: "correct horse"}, "tok")

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, users, carts, _ := newTestAccountService()
		users.On("FindByLogin", ctx, "ana").Return(user, nil)

		_, err := svc.Login(ctx, &model.LoginRequest{Login: "ana", Password: "wrong"}, "tok")

		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
		carts.AssertNotCalled(t, "MergeOnLogin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, users, _, _ := newTestAccountService()
		users.On("FindByLogin", ctx, "nobody").Return(nil, nil)

		_, err := svc.Login(ctx, &model.LoginRequest{Login: "nobody", Password: "x"}, "")

		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
		assert.Equal(t, model.KindUnauthorised, model.KindOf(err))
	})
}

func TestAccountService_Login_HandsOverCheckoutDraft(t *testing.T) {
	ctx := context.Background()

	hash, err := auth.HashPassword("correct horse", fastParams)
	require.NoError(t, err)
	user := &model.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com", PasswordHash: hash}

	t.Run("draft adopted alongside cart", func(t *testing.T) {
		svc, m, _ := newTestAccountServiceWithMocks()
		m.checkout.ExpectedCalls = nil
		m.users.On("FindByLogin", ctx, "ana").Return(user, nil)
		m.carts.On("MergeOnLogin", ctx, "tok", user.ID).Return(nil)
		m.checkout.On("AdoptDraft", ctx, "tok", user.ID).Return(nil).Once()

		_, err := svc.Login(ctx, &model.LoginRequest{Login: "ana", Password: "correct horse"}, "tok")

		require.NoError(t, err)
		m.checkout.AssertExpectations(t)
	})

	t.Run("draft failure does not block login", func(t *testing.T) {
		svc, m, _ := newTestAccountServiceWithMocks()
		m.checkout.ExpectedCalls = nil
		m.users.On("FindByLogin", ctx, "ana").Return(user, nil)
		m.carts.On("MergeOnLogin", ctx, "tok", user.ID).Return(nil)
		m.checkout.On("AdoptDraft", ctx, "tok", user.ID).Return(errors.New("redis down")).Once()

		resp, err := svc.Login(ctx, &model.LoginRequest{Login: "ana", Password: "correct horse"}, "tok")

		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		m.checkout.AssertExpectations(t)
	})

	t.Run("rejected login leaves the draft alone", func(t *testing.T) {
		svc, m, _ := newTestAccountServiceWithMocks()
		m.users.On("FindByLogin", ctx, "ana").Return(user, nil)

		_, err := svc.Login(ctx, &model.LoginRequest{Login: "ana", Password: "wrong"}, "tok")

		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
		m.checkout.AssertNotCalled(t, "AdoptDraft", mock.Anything, mock.Anything, mock.Anything)
	})
}

