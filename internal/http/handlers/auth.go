package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/ledger-be/internal/auth"
	"github.com/hongminglow/ledger-be/internal/http/respond"
	applog "github.com/hongminglow/ledger-be/internal/log"
	"github.com/hongminglow/ledger-be/internal/models"
	"github.com/hongminglow/ledger-be/internal/models/dto"
	"github.com/hongminglow/ledger-be/internal/storage"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

const msgInvalidCredentials = "Invalid email or password"

// AuthHandler owns the signup, login and profile endpoints.
type AuthHandler struct {
	users  storage.UserStore
	tokens *auth.TokenManager
	cost   int
	now    func() time.Time
}

// NewAuthHandler constructs the handler. cost is the bcrypt work factor for new passwords.
func NewAuthHandler(users storage.UserStore, tokens *auth.TokenManager, cost int) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, cost: cost, now: time.Now}
}

// Register attaches the public auth routes under prefix. The profile route
// is wrapped with guard.
func (h *AuthHandler) Register(mux *http.ServeMux, prefix string, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("POST "+prefix+"/auth/signup", h.handleSignup)
	mux.HandleFunc("POST "+prefix+"/auth/login", h.handleLogin)
	mux.Handle("GET "+prefix+"/auth/me", guard(http.HandlerFunc(h.handleMe)))
}

func (h *AuthHandler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	email := models.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "name, email and password are required")
		return
	}
	if len(req.Password) > maxPasswordBytes {
		respond.Error(w, http.StatusBadRequest, "password must be at most 72 bytes")
		return
	}

	logger := applog.FromContext(r.Context()).With(applog.FieldComponent, applog.ComponentAuth)
	hash, err := auth.HashPassword(req.Password, h.cost)
	if err != nil {
		logger.Error("hash password failed", applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	created, err := h.users.CreateUser(r.Context(), models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    h.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		logger.Error("create user failed", applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := h.tokens.Generate(created)
	if err != nil {
		logger.Error("sign token failed", applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}
	respond.JSON(w, http.StatusCreated, dto.AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User:    dto.NewUserView(created),
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	logger := applog.FromContext(r.Context()).With(applog.FieldComponent, applog.ComponentAuth)
	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Info("login rejected", "reason", "unknown email")
			respond.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}
		logger.Error("find user failed", applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}

	ok, err := auth.ComparePassword(user.PasswordHash, req.Password)
	if err != nil {
		logger.Error("compare password failed", applog.FieldUserID, user.ID, applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !ok {
		logger.Info("login rejected", "reason", "wrong password", applog.FieldUserID, user.ID)
		respond.Error(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		logger.Error("sign token failed", applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}
	respond.JSON(w, http.StatusOK, dto.AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    dto.NewUserView(user),
	})
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		return
	}
	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "User not found")
			return
		}
		applog.FromContext(r.Context()).Error("find user failed",
			applog.FieldComponent, applog.ComponentAuth, applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Server error")
		return
	}
	respond.JSON(w, http.StatusOK, dto.ProfileResponse{Success: true, User: dto.NewUserView(user)})
}
