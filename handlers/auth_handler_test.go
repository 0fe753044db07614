package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/services"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthService struct {
	services.AuthService
}

func (s stubAuthService) LoginAdmin(ctx context.Context, creds models.Credentials) (*services.Identity, error) {
	if creds.Username == "arbiter" && creds.Password == "s3cret-pass" {
		return &services.Identity{UserID: 1, Role: models.RoleAdmin, Name: "arbiter"}, nil
	}
	return nil, services.ErrAuthInvalidCredentials
}

func (s stubAuthService) LoginPlayer(ctx context.Context, code string) (*services.Identity, error) {
	if code == "ABCD1234" {
		return &services.Identity{UserID: 9, Role: models.RolePlayer, Name: "Magnus"}, nil
	}
	return nil, services.ErrAuthInvalidAccessCode
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestLoginIssuesSignedToken(t *testing.T) {
	h := NewAuthHandler(stubAuthService{}, "secret", time.Hour)
	issuedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return issuedAt }

	rec := post(h.Login, `{"username": "arbiter", "password": "s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "login successful", body.Message)

	claims := jwt.MapClaims{}
	parser := jwt.Parser{SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(body.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), claims["user_id"])
	assert.Equal(t, "admin", claims["role"])
	assert.Equal(t, float64(issuedAt.Add(time.Hour).Unix()), claims["exp"])
}

func TestLoginFailures(t *testing.T) {
	h := NewAuthHandler(stubAuthService{}, "secret", time.Hour)

	assert.Equal(t, http.StatusBadRequest, post(h.Login, `{"username": "arbiter"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(h.Login, `{"username": "arbiter", "password": "nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.PlayerLogin, `{}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(h.PlayerLogin, `{"access_code": "WRONG"}`).Code)
}

func TestPlayerLogin(t *testing.T) {
	h := NewAuthHandler(stubAuthService{}, "secret", time.Hour)
	rec := post(h.PlayerLogin, `{"access_code": "ABCD1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role": "player"`)
}
