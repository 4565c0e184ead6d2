package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"clinicd/internal/domain"
	"clinicd/internal/middleware"
)

const sessionTTL = 7 * 24 * time.Hour

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. The plan column stays NULL; the route gate
// grants the trial on the first authenticated visit, not here, so users
// created by support tooling follow the same path.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		a.error(w, http.StatusBadRequest, "invalid_email", "a valid email is required")
		return
	}
	if len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.Logger.Error().Err(err).Msg("auth: hash password")
		a.error(w, http.StatusInternalServerError, "internal", "could not create account")
		return
	}

	user, err := a.Users.Create(r.Context(), &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			a.error(w, http.StatusConflict, "email_taken", "an account with this email already exists")
			return
		}
		a.Logger.Error().Err(err).Msg("auth: create user")
		a.error(w, http.StatusInternalServerError, "internal", "could not create account")
		return
	}

	a.Logger.Info().Str("user_id", user.ID).Msg("auth: account created")
	a.issueSession(w, r, user, http.StatusCreated)
}

// Login verifies credentials and issues a session token.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	user, err := a.Users.GetByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
			return
		}
		a.Logger.Error().Err(err).Msg("auth: load user")
		a.error(w, http.StatusInternalServerError, "internal", "could not sign in")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		a.error(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
		return
	}

	a.issueSession(w, r, user, http.StatusOK)
}

func (a *App) issueSession(w http.ResponseWriter, r *http.Request, user *domain.User, status int) {
	claims := middleware.TokenClaims{
		Sub:      user.ID,
		Email:    user.Email,
		Locale:   middleware.LocaleFromContext(r.Context()),
		Exp:      time.Now().Add(sessionTTL).Unix(),
		Issuer:   middleware.TokenIssuer,
		Audience: middleware.TokenAudience,
	}
	if user.Plan != nil {
		claims.Plan = string(*user.Plan)
	}
	token, err := middleware.SignJWT(a.JWTSecret, claims)
	if err != nil {
		a.Logger.Error().Err(err).Msg("auth: sign token")
		a.error(w, http.StatusInternalServerError, "internal", "could not sign in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	a.json(w, status, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}
