package authapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-auth/pkg/account"
	"github.com/tendant/simple-auth/pkg/metrics"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
	"github.com/tendant/simple-auth/pkg/verification"
)

// Handler serves the authentication API.
type Handler struct {
	verificationService *verification.VerificationService
	accountService      *account.AccountService
	tokenGen            tokengenerator.TokenGenerator
	metrics             *metrics.Collector
}

type HandlerOption func(*Handler)

// WithMetrics makes the handler record domain counters on the collector.
func WithMetrics(c *metrics.Collector) HandlerOption {
	return func(h *Handler) {
		h.metrics = c
	}
}

func NewHandler(verificationService *verification.VerificationService, accountService *account.AccountService, tokenGen tokengenerator.TokenGenerator, opts ...HandlerOption) *Handler {
	h := &Handler{
		verificationService: verificationService,
		accountService:      accountService,
		tokenGen:            tokenGen,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes mounts the authentication endpoints on the router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/check-email", h.CheckEmail)
	r.Post("/send-verification", h.SendVerification)
	r.Post("/verify-code", h.VerifyCode)
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Post("/logout", h.Logout)
		r.Delete("/withdraw", h.Withdraw)
		r.Get("/profile", h.Profile)
	})
}

// CheckEmail handles POST /check-email
func (h *Handler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	var req CheckEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, r, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if req.Email == "" {
		respondStatus(w, r, http.StatusBadRequest, "MISSING_EMAIL", "Email is required")
		return
	}
	if !verification.IsValidEmail(req.Email) {
		respondStatus(w, r, http.StatusBadRequest, "INVALID_EMAIL_FORMAT", "Invalid email format")
		return
	}

	exists, err := h.accountService.EmailExists(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := CheckEmailResponse{Exists: exists}
	if exists {
		resp.Status = Status{Success: false, Code: "EMAIL_ALREADY_EXISTS", Message: "Email already in use"}
	} else {
		resp.Status = Status{Success: true, Code: "EMAIL_AVAILABLE", Message: "Email is available"}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// SendVerification handles POST /send-verification
func (h *Handler) SendVerification(w http.ResponseWriter, r *http.Request) {
	var req SendVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, r, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if req.Email == "" {
		respondStatus(w, r, http.StatusBadRequest, "MISSING_EMAIL", "Email is required")
		return
	}

	expiresIn, err := h.verificationService.RequestCode(r.Context(), req.Email)
	if err != nil {
		if h.metrics != nil && errors.Is(err, verification.ErrSendFailed) {
			h.metrics.RecordEmailSendError()
		}
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCodeIssued()
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SendVerificationResponse{
		Status:    Status{Success: true, Code: "VERIFICATION_CODE_SENT", Message: "Verification code sent to email"},
		ExpiresIn: int(expiresIn.Seconds()),
	})
}

// VerifyCode handles POST /verify-code
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, r, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if req.Email == "" || req.Code == "" {
		respondStatus(w, r, http.StatusBadRequest, "MISSING_FIELDS", "Email and code are required")
		return
	}

	if err := h.verificationService.CheckCode(r.Context(), req.Email, req.Code); err != nil {
		if h.metrics != nil {
			switch {
			case errors.Is(err, verification.ErrInvalidCode):
				h.metrics.RecordCodeCheck("invalid")
			case errors.Is(err, verification.ErrCodeNotFound):
				h.metrics.RecordCodeCheck("not_found")
			case errors.Is(err, verification.ErrTooManyAttempts):
				h.metrics.RecordCodeCheck("exhausted")
			}
		}
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordCodeCheck("success")
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Status{Success: true, Code: "EMAIL_VERIFIED", Message: "Email verified successfully"})
}

// Signup handles POST /signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, r, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.Code == "" {
		respondStatus(w, r, http.StatusBadRequest, "MISSING_FIELDS", "All fields required")
		return
	}

	user, err := h.accountService.Signup(r.Context(), req.Email, req.Password, req.Code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordSignup()
	}

	payload, err := toUserPayload(user)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SignupResponse{
		Status: Status{Success: true, Code: "USER_CREATED", Message: "Account created successfully"},
		User:   payload,
	})
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, r, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondStatus(w, r, http.StatusBadRequest, "MISSING_FIELDS", "Email and password are required")
		return
	}

	result, err := h.accountService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.metrics != nil && errors.Is(err, account.ErrInvalidCredentials) {
			h.metrics.RecordLogin("failure")
		}
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordLogin("success")
	}

	payload, err := toUserPayload(result.User)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, LoginResponse{
		Status: Status{Success: true, Code: "LOGIN_SUCCESS", Message: "Login successful"},
		Token:  result.Token,
		User:   payload,
	})
}

// Logout handles POST /logout. Tokens are stateless so there is nothing to
// revoke server side; the client is told to discard its copy.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := GetAuthUser(r)
	slog.Info("User logged out", "userId", user.UserID)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Status{Success: true, Code: "LOGOUT_SUCCESS", Message: "Logout successful. Please delete the token on client side."})
}

// Withdraw handles DELETE /withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user := GetAuthUser(r)

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondStatus(w, r, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body")
		return
	}

	if req.Password == "" {
		respondStatus(w, r, http.StatusBadRequest, "MISSING_PASSWORD", "Password is required for account deletion")
		return
	}

	if err := h.accountService.Withdraw(r.Context(), user.UserID, req.Password); err != nil {
		h.respondError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWithdrawal()
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, Status{Success: true, Code: "ACCOUNT_DELETED", Message: "Account deleted successfully"})
}

// Profile handles GET /profile
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r)

	user, err := h.accountService.GetUser(r.Context(), authUser.UserID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	payload, err := toProfilePayload(user)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ProfileResponse{
		Status: Status{Success: true, Code: "PROFILE_RETRIEVED", Message: "Profile retrieved successfully"},
		User:   payload,
	})
}

// respondError maps service errors to their HTTP status and stable code.
// Anything unmapped collapses to a generic 500 without leaking detail.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var rateLimited *verification.RateLimitedError
	if errors.As(err, &rateLimited) {
		retryAfter := int(rateLimited.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, ErrorResponse{
			Status:     Status{Success: false, Code: "TOO_MANY_REQUESTS", Message: "Please wait before requesting another code"},
			RetryAfter: &retryAfter,
		})
		return
	}

	var invalidCode *verification.InvalidCodeError
	if errors.As(err, &invalidCode) {
		remaining := invalidCode.AttemptsRemaining
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{
			Status:            Status{Success: false, Code: "INVALID_CODE", Message: "Invalid verification code"},
			AttemptsRemaining: &remaining,
		})
		return
	}

	switch {
	case errors.Is(err, verification.ErrInvalidEmail):
		respondStatus(w, r, http.StatusBadRequest, "INVALID_EMAIL_FORMAT", "Invalid email format")
	case errors.Is(err, verification.ErrInvalidCodeFormat):
		respondStatus(w, r, http.StatusBadRequest, "INVALID_CODE_FORMAT", "Code must be 6 digits")
	case errors.Is(err, verification.ErrEmailRegistered):
		respondStatus(w, r, http.StatusConflict, "EMAIL_ALREADY_EXISTS", "Email is already registered")
	case errors.Is(err, verification.ErrSendFailed):
		respondStatus(w, r, http.StatusInternalServerError, "EMAIL_SEND_ERROR", "Failed to send verification email")
	case errors.Is(err, verification.ErrCodeNotFound):
		respondStatus(w, r, http.StatusNotFound, "CODE_NOT_FOUND", "No verification code found or expired")
	case errors.Is(err, verification.ErrInvalidCode):
		respondStatus(w, r, http.StatusUnauthorized, "INVALID_CODE", "Invalid verification code")
	case errors.Is(err, verification.ErrTooManyAttempts):
		respondStatus(w, r, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many failed attempts. Please request a new code.")
	case errors.Is(err, account.ErrWeakPassword):
		respondStatus(w, r, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 6 characters long")
	case errors.Is(err, account.ErrEmailTaken):
		respondStatus(w, r, http.StatusConflict, "USER_ALREADY_EXISTS", "Email already in use")
	case errors.Is(err, account.ErrInvalidCredentials):
		respondStatus(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
	case errors.Is(err, account.ErrInvalidPassword):
		respondStatus(w, r, http.StatusUnauthorized, "INVALID_PASSWORD", "Invalid password")
	case errors.Is(err, account.ErrUserNotFound):
		respondStatus(w, r, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	default:
		slog.Error("Unhandled error in auth API", "err", err)
		respondStatus(w, r, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Server error")
	}
}
