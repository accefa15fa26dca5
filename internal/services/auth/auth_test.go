package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hostplane/controlplane/internal/apperr"
	"github.com/hostplane/controlplane/internal/lib/password"
	"github.com/hostplane/controlplane/internal/models"
	"github.com/hostplane/controlplane/internal/services/auth"
)

type repoMock struct{ mock.Mock }

func (m *repoMock) CreateUser(ctx context.Context, email, passwordDigest string) (*models.User, error) {
	args := m.Called(ctx, email, passwordDigest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *repoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *repoMock) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type tokenMock struct{ mock.Mock }

func (m *tokenMock) Issue(userID string) (string, time.Time, error) {
	args := m.Called(userID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

const validPassword = "Str0ng!Pass"

func TestService_Register_RejectsWeakPassword(t *testing.T) {
	repo := &repoMock{}
	tokens := &tokenMock{}
	svc := auth.New(repo, tokens, password.MinCost)

	_, err := svc.Register(context.Background(), "a@example.com", "weak")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Register_Success(t *testing.T) {
	repo := &repoMock{}
	tokens := &tokenMock{}
	svc := auth.New(repo, tokens, password.MinCost)

	created := &models.User{ID: "u1", Email: "a@example.com"}
	repo.On("CreateUser", mock.Anything, "a@example.com", mock.AnythingOfType("string")).Return(created, nil)

	got, err := svc.Register(context.Background(), "a@example.com", validPassword)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestService_Login_UnknownEmailReportsAuthFailed(t *testing.T) {
	repo := &repoMock{}
	tokens := &tokenMock{}
	svc := auth.New(repo, tokens, password.MinCost)

	repo.On("GetUserByEmail", mock.Anything, "nobody@example.com").
		Return(nil, apperr.New(apperr.NotFound, "no account with that email"))

	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", validPassword)
	require.Error(t, err)
	assert.Equal(t, apperr.AuthFailed, apperr.KindOf(err))
}

func TestService_Login_WrongPasswordReportsAuthFailed(t *testing.T) {
	digest, err := password.Hash(validPassword, password.MinCost)
	require.NoError(t, err)

	repo := &repoMock{}
	tokens := &tokenMock{}
	svc := auth.New(repo, tokens, password.MinCost)

	repo.On("GetUserByEmail", mock.Anything, "a@example.com").
		Return(&models.User{ID: "u1", Email: "a@example.com", PasswordDigest: digest}, nil)

	_, _, _, err = svc.Login(context.Background(), "a@example.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, apperr.AuthFailed, apperr.KindOf(err))
}

func TestService_Login_Success(t *testing.T) {
	digest, err := password.Hash(validPassword, password.MinCost)
	require.NoError(t, err)

	repo := &repoMock{}
	tokens := &tokenMock{}
	svc := auth.New(repo, tokens, password.MinCost)

	user := &models.User{ID: "u1", Email: "a@example.com", PasswordDigest: digest}
	repo.On("GetUserByEmail", mock.Anything, "a@example.com").Return(user, nil)
	expiresAt := time.Now().Add(time.Hour)
	tokens.On("Issue", "u1").Return("signed-token", expiresAt, nil)

	tok, exp, got, err := svc.Login(context.Background(), "a@example.com", validPassword)
	require.NoError(t, err)
	assert.Equal(t, "signed-token", tok)
	assert.Equal(t, expiresAt, exp)
	assert.Equal(t, user, got)
}
