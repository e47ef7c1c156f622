package authapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

type contextKey string

const authUserKey contextKey = "authUser"

// AuthUser is the identity extracted from a verified bearer token.
type AuthUser struct {
	UserID int64
	Email  string
}

// GetAuthUser returns the authenticated identity set by RequireAuth, or nil
// outside a protected route.
func GetAuthUser(r *http.Request) *AuthUser {
	user, _ := r.Context().Value(authUserKey).(*AuthUser)
	return user
}

// RequireAuth verifies the Authorization bearer token and stores the
// embedded identity in the request context. Header and token problems get
// distinct codes so clients can tell a missing header from a stale token.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondStatus(w, r, http.StatusUnauthorized, "NO_AUTH_HEADER", "Authorization header required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondStatus(w, r, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
			return
		}

		claims, err := h.tokenGen.ParseToken(token)
		if err != nil {
			if errors.Is(err, tokengenerator.ErrTokenExpired) {
				respondStatus(w, r, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")
				return
			}
			respondStatus(w, r, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
			return
		}

		user := &AuthUser{UserID: claims.UserID, Email: claims.Email}
		ctx := context.WithValue(r.Context(), authUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func respondStatus(w http.ResponseWriter, r *http.Request, httpStatus int, code, message string) {
	render.Status(r, httpStatus)
	render.JSON(w, r, ErrorResponse{Status: Status{Success: false, Code: code, Message: message}})
}
