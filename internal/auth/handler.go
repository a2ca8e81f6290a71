package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

// Handler wires HTTP endpoints for registration and login.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

type registerRequest struct {
	Email       string  `json:"email" validate:"required,email,max=255"`
	Name        string  `json:"name" validate:"required,max=255"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=32"`
	Password    string  `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// accountResponse is the wire shape of an account; the password hash never leaves the service.
type accountResponse struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	PhoneNumber *string   `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type loginResponse struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	ExpiredIn    int64           `json:"expiredIn"`
	User         accountResponse `json:"user"`
}

func newAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		PhoneNumber: a.PhoneNumber,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, httpx.ValidationMessage(err))
		return
	}

	account, err := h.service.Register(r.Context(), RegisterInput{
		Email:       req.Email,
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err, "Server error during registration")
		return
	}
	httpx.OK(w, r, http.StatusCreated, newAccountResponse(*account), "")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, httpx.ValidationMessage(err))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Fail(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		httpx.RespondError(w, r, h.logger, err, "Server error during login")
		return
	}
	httpx.OK(w, r, http.StatusOK, loginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiredIn:    result.ExpiresIn,
		User:         newAccountResponse(result.Account),
	}, "Login successful")
}
