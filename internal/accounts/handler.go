// Package accounts serves signup, login and the profile screens. Accounts are
// keyed by the sanitized email so the key inside a session token matches the
// one carts and orders are stored under.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/reefmart/internal/domain"
	"github.com/joao-fontenele/reefmart/internal/session"
)

type Store interface {
	Create(ctx context.Context, u *domain.User) error
	GetByKey(ctx context.Context, key string) (*domain.User, error)
	UpdateAddress(ctx context.Context, key string, addr domain.Address) error
	UpdatePassword(ctx context.Context, key, passwordHash string) error
}

type Handler struct {
	repo     Store
	sessions *session.Manager
	admins   map[string]bool
	logger   *slog.Logger
	signups  metric.Int64Counter
	logins   metric.Int64Counter
}

// NewHandler grants the admin role at signup to any address in adminEmails.
func NewHandler(repo Store, sessions *session.Manager, adminEmails []string, logger *slog.Logger) (*Handler, error) {
	meter := otel.Meter("accounts")
	signups, err := meter.Int64Counter("accounts.signups",
		metric.WithDescription("Number of accounts created"),
	)
	if err != nil {
		return nil, err
	}
	logins, err := meter.Int64Counter("accounts.logins",
		metric.WithDescription("Number of successful logins"),
	)
	if err != nil {
		return nil, err
	}

	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		admins[domain.NormalizeEmail(email)] = true
	}

	return &Handler{
		repo:     repo,
		sessions: sessions,
		admins:   admins,
		logger:   logger,
		signups:  signups,
		logins:   logins,
	}, nil
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	email := domain.NormalizeEmail(req.Email)
	user := &domain.User{
		Key:          domain.UserKey(email),
		Username:     strings.TrimSpace(req.Username),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if h.admins[email] {
		user.Role = domain.RoleAdmin
	}

	if err := h.repo.Create(r.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			h.writeError(w, http.StatusConflict, "email already registered")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.signups.Add(r.Context(), 1)
	h.logger.Info("user signed up", "user_key", user.Key, "role", user.Role)
	h.writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.repo.GetByKey(r.Context(), domain.UserKey(req.Email))
	if err != nil {
		h.logger.Error("failed to load user", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		h.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	ok, err := checkPassword(user.PasswordHash, req.Password)
	if err != nil {
		h.logger.Error("failed to verify password", "user_key", user.Key, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logins.Add(r.Context(), 1)
	h.logger.Info("user logged in", "user_key", user.Key)
	h.writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdateAddress(w http.ResponseWriter, r *http.Request) {
	claims, _ := session.FromContext(r.Context())

	var addr domain.Address
	if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	addr = trimAddress(addr)
	if addr.Street == "" || addr.City == "" || addr.Country == "" {
		h.writeError(w, http.StatusBadRequest, "street, city and country are required")
		return
	}

	if err := h.repo.UpdateAddress(r.Context(), claims.UserKey, addr); err != nil {
		h.writeStoreError(w, "failed to update address", err)
		return
	}

	h.logger.Info("address updated", "user_key", claims.UserKey)
	h.HandleProfile(w, r)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < MinPasswordLength {
		h.writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	if len(req.NewPassword) > MaxPasswordLength {
		h.writeError(w, http.StatusBadRequest, "password must be at most 72 bytes")
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	match, err := checkPassword(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		h.logger.Error("failed to verify password", "user_key", user.Key, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !match {
		h.writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := h.repo.UpdatePassword(r.Context(), user.Key, hash); err != nil {
		h.writeStoreError(w, "failed to update password", err)
		return
	}

	h.logger.Info("password changed", "user_key", user.Key)
	w.WriteHeader(http.StatusNoContent)
}

// currentUser loads the account behind the session. It writes the error
// response itself when it returns false.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	claims, _ := session.FromContext(r.Context())
	user, err := h.repo.GetByKey(r.Context(), claims.UserKey)
	if err != nil {
		h.logger.Error("failed to load user", "user_key", claims.UserKey, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if user == nil {
		h.writeError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	return user, true
}

func trimAddress(a domain.Address) domain.Address {
	return domain.Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, ErrUserNotFound) {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error(msg, "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
