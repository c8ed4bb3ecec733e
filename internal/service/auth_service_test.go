package service

import (
	"context"
	"testing"

	"github.com/zerofarias/varo-pos-sub000/internal/dto"
	"github.com/zerofarias/varo-pos-sub000/internal/middleware"
	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "unit-test-secret"

func buildAuthSvc(t *testing.T) (AuthService, *model.User) {
	t.Helper()
	users := newStubUserRepo()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		ID:           uuid.New(),
		Username:     "mgarcia",
		Name:         "Garcia",
		PasswordHash: string(hash),
		Role:         model.RoleCashier,
		BranchID:     uuid.New(),
		Active:       true,
	}
	users.items[user.ID] = user

	return NewAuthService(users, testSecret, 8, 168), user
}

func parseClaims(t *testing.T, token string) *middleware.JWTClaims {
	t.Helper()
	claims := &middleware.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	return claims
}

func TestLogin_IssuesTokenPair(t *testing.T) {
	svc, user := buildAuthSvc(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "mgarcia", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, 8*3600, resp.ExpiresIn)

	access := parseClaims(t, resp.AccessToken)
	assert.Equal(t, "access", access.TokenType)
	assert.Equal(t, user.ID.String(), access.UserID)
	assert.Equal(t, "mgarcia", access.Username)
	assert.Equal(t, model.RoleCashier, access.Role)
	assert.Equal(t, user.BranchID.String(), access.BranchID)

	refresh := parseClaims(t, resp.RefreshToken)
	assert.Equal(t, "refresh", refresh.TokenType)
	// Refresh tokens carry only the identity, not the authorization.
	assert.Empty(t, refresh.Role)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := buildAuthSvc(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "mgarcia", Password: "wrong"})
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := buildAuthSvc(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "hunter22"})
	assert.ErrorContains(t, err, "invalid credentials")
}

func TestRefresh_RoundTrip(t *testing.T) {
	svc, user := buildAuthSvc(t)

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "mgarcia", Password: "hunter22"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)

	access := parseClaims(t, refreshed.AccessToken)
	assert.Equal(t, "access", access.TokenType)
	assert.Equal(t, user.ID.String(), access.UserID)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _ := buildAuthSvc(t)

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "mgarcia", Password: "hunter22"})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: login.AccessToken})
	assert.ErrorContains(t, err, "invalid refresh token")
}

func TestRefresh_DisabledAccount(t *testing.T) {
	svc, user := buildAuthSvc(t)

	login, err := svc.Login(context.Background(), dto.LoginRequest{Username: "mgarcia", Password: "hunter22"})
	require.NoError(t, err)

	user.Active = false
	_, err = svc.Refresh(context.Background(), dto.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.ErrorContains(t, err, "account is disabled")
}
