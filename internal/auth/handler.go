package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tasknest/tasknest-api/internal/httputil"
	"github.com/tasknest/tasknest-api/internal/logging"
	"github.com/tasknest/tasknest-api/internal/ratelimit"
	"github.com/tasknest/tasknest-api/internal/user"
)

// Handler contains HTTP handlers for the identity endpoints
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
	sessionTTL  time.Duration
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger, sessionTTL time.Duration) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
		sessionTTL:  sessionTTL,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD
	Gender    string `json:"gender"`
	Password  string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
	Active    bool   `json:"active"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	Account AccountResponse `json:"account"`
	Message string          `json:"message"`
	Warning string          `json:"warning,omitempty"`
}

// UpdateAccountRequest represents the profile update request body
type UpdateAccountRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func mapAccountResponse(a *user.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		BirthDate: a.BirthDate.Format("2006-01-02"),
		Gender:    a.Gender,
		Active:    a.Active,
	}
}

// Register handles account registration
// @Summary      Register a new account
// @Description  Create a new account. The account starts inactive; an activation email is sent.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Username or email already exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "register")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for register", "ip", ip)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	// Every profile field is required at registration.
	required := map[string]string{
		"username":   req.Username,
		"email":      req.Email,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"birth_date": req.BirthDate,
		"gender":     req.Gender,
		"password":   req.Password,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			logger.Warn("registration failed: missing field", "field", field)
			httputil.RespondErrorWithCode(w, "missing required field: "+field, httputil.CodeMissingField, http.StatusBadRequest)
			return
		}
	}

	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		logger.Warn("registration failed: invalid birth date", "error", err.Error())
		httputil.RespondErrorWithCode(w, "birth_date must be formatted YYYY-MM-DD", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"username": req.Username})

	// Cooldown per target address so a retried registration cannot spam the
	// activation mailbox.
	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("registration email cooldown active")
		httputil.RespondErrorWithCode(w, "please wait before requesting another activation email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "register"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	result, err := h.service.Register(r.Context(), RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		BirthDate: birthDate,
		Gender:    req.Gender,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			logger.Warn("registration failed: duplicate username or email")
			httputil.RespondErrorWithCode(w, "username or email already exists", httputil.CodeAlreadyExists, http.StatusConflict)
			return
		}
		if errors.Is(err, ErrPasswordTooShort) || errors.Is(err, ErrInvalidEmailFormat) {
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		logger.Error("registration failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to register account", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("account registered", "user_id", result.Account.ID)

	if result.MailErr == nil {
		if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
			logger.Error("failed to set email cooldown", "error", err.Error())
		}
	}

	resp := RegisterResponse{
		Account: mapAccountResponse(result.Account),
		Message: "Registration successful. Check your email to activate your account.",
	}
	if result.MailErr != nil {
		// Partial success: the account exists but the mail step failed.
		resp.Warning = "activation email could not be delivered"
	}

	httputil.RespondJSON(w, resp, http.StatusCreated)
}

// Login handles user login
// @Summary      Log in
// @Description  Authenticate with username and password and receive a session token. An inactive account can log in but only reach the activation endpoint.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, "login")
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded for login", "ip", ip)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"username": req.Username})

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, "login"); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}

	sessionToken, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, "invalid credentials", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in")

	httputil.RespondJSON(w, LoginResponse{
		AccessToken: sessionToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.sessionTTL.Seconds()),
	}, http.StatusOK)
}

// Confirm handles account activation
// @Summary      Activate account
// @Description  Confirm the activation token from the emailed link. The activation identity must match the caller's own session identity; the response is the same generic acknowledgment either way.
// @Tags         auth
// @Produce      json
// @Param        token query string true "Activation token"
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Missing activation token"
// @Failure      401 {object} httputil.ErrorResponse "Missing authentication"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /authenticate-email [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	activationToken := r.URL.Query().Get("token")
	if activationToken == "" {
		logger.Warn("activation failed: token missing")
		httputil.RespondErrorWithCode(w, "activation token required", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	// The caller must present some session credential; whether it actually
	// resolves is deliberately not revealed by the response.
	sessionToken, ok := ExtractBearerToken(r)
	if !ok {
		httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
		return
	}
	if sessionToken == "" {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.Confirm(r.Context(), activationToken, sessionToken); err != nil {
		logger.Error("activation failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to activate account", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	// Uniform acknowledgment regardless of match outcome.
	httputil.RespondJSON(w, map[string]string{"message": "account active"}, http.StatusOK)
}

// Me returns the authenticated caller's profile
// @Summary      Get own profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} AccountResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized or inactive"
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	httputil.RespondJSON(w, mapAccountResponse(account), http.StatusOK)
}

// UpdateMe rewrites the authenticated caller's profile
// @Summary      Update own profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateAccountRequest true "Profile fields"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Invalid request body"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      409 {object} httputil.ErrorResponse "Username or email already exists"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /users/me [put]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	err := h.service.UpdateProfile(r.Context(), account, UpdateInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			logger.Warn("profile update failed: duplicate username or email")
			httputil.RespondErrorWithCode(w, "username or email already exists", httputil.CodeAlreadyExists, http.StatusConflict)
			return
		}
		if errors.Is(err, ErrInvalidEmailFormat) {
			logger.Warn("profile update failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidRequestBody, http.StatusBadRequest)
			return
		}
		logger.Error("profile update failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile updated", "user_id", account.ID)

	httputil.RespondJSON(w, map[string]string{"message": "profile updated"}, http.StatusOK)
}

// DeleteMe removes the authenticated caller's account
// @Summary      Delete own account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /users/me [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	account, ok := AccountFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), account); err != nil {
		logger.Error("account delete failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to delete account", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("account deleted", "user_id", account.ID)

	httputil.RespondJSON(w, map[string]string{"message": "account deleted"}, http.StatusOK)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For first (behind proxy/load balancer)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr format is "IP:port"
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
