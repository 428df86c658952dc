package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/plansync/internal/crypto"
	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/storage"
	"github.com/iudanet/plansync/internal/validation"
	"github.com/iudanet/plansync/pkg/api"
)

// TokenIssuer выпускает access token для пользователя
type TokenIssuer interface {
	GenerateAccessToken(userID, username string) (string, int64, error)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	tokens      TokenIssuer
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		userStorage: userStorage,
		tokens:      tokens,
	}
}

// Register обрабатывает POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, "invalid request body")
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.String("username", req.Username), slog.Any("error", err))
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, err.Error())
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, err.Error())
		return
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate salt", slog.Any("error", err))
		sendError(h.logger, w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}
	hash, err := crypto.HashPassword(req.Password, salt)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		sendError(h.logger, w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: hash,
		Salt:         salt,
	}

	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("username", req.Username))
			sendError(h.logger, w, http.StatusConflict, api.CodeConflict, "username already taken")
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		sendError(h.logger, w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	h.logger.InfoContext(ctx, "user registered successfully",
		slog.String("username", req.Username),
		slog.String("user_id", user.ID))

	sendJSON(h.logger, w, api.RegisterResponse{
		UserID:  user.ID,
		Message: "User registered successfully",
	}, http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, "invalid request body")
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, err.Error())
		return
	}
	if req.Password == "" {
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, "password is required")
		return
	}

	user, err := h.userStorage.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("username", req.Username))
			sendError(h.logger, w, http.StatusUnauthorized, api.CodeUnauthenticated, "invalid credentials")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	ok, err := crypto.VerifyPassword(req.Password, user.Salt, user.PasswordHash)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to verify password", slog.Any("error", err))
		sendError(h.logger, w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}
	if !ok {
		h.logger.WarnContext(ctx, "login failed: invalid password", slog.String("username", req.Username))
		sendError(h.logger, w, http.StatusUnauthorized, api.CodeUnauthenticated, "invalid credentials")
		return
	}

	accessToken, expiresIn, err := h.tokens.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(h.logger, w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", req.Username),
		slog.String("user_id", user.ID))

	sendJSON(h.logger, w, api.TokenResponse{
		AccessToken: accessToken,
		UserID:      user.ID,
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}
