package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/services"
	"github.com/golang-jwt/jwt/v4"
)

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   []byte
	tokenTTL    time.Duration
	now         func() time.Time
}

func NewAuthHandler(authService services.AuthService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   []byte(jwtSecret),
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// Login обрабатывает POST /auth/login для администратора.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input models.Credentials
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Username == "" || input.Password == "" {
		badRequestResponse(w, r, errors.New("username and password are required"))
		return
	}

	identity, err := h.authService.LoginAdmin(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondWithToken(w, r, identity)
}

// PlayerLogin обрабатывает POST /auth/player-login по коду доступа.
func (h *AuthHandler) PlayerLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AccessCode string `json:"access_code"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.AccessCode == "" {
		badRequestResponse(w, r, errors.New("access_code is required"))
		return
	}

	identity, err := h.authService.LoginPlayer(r.Context(), input.AccessCode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondWithToken(w, r, identity)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, identity *services.Identity) {
	now := h.now()
	claims := jwt.MapClaims{
		"user_id": identity.UserID,
		"role":    string(identity.Role),
		"name":    identity.Name,
		"exp":     now.Add(h.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	messageResponse(w, r, http.StatusOK, "login successful", jsonResponse{
		"token": tokenString,
		"user":  identity,
	})
}
