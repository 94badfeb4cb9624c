package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// DefaultBypassUserID is the user ID assigned under BYPASS_AUTH when no X-User-ID header is present.
const DefaultBypassUserID = "test-user-123"

// BypassUserHeader lets local tools pick a user identity while BYPASS_AUTH is enabled.
const BypassUserHeader = "X-User-ID"

var (
	ErrMissingToken   = errors.New("authorization token is required")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("invalid token: missing user ID")
)

type UserIDKey struct{}

// GetUserIDFromContext retrieves the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey{}).(string)
	return userID, ok
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey{}, userID)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Authenticator validates HS256 JWTs signed with the Supabase secret.
type Authenticator struct {
	Secret []byte
	Bypass bool
}

// NewAuthenticator creates an Authenticator. When bypass is true every request is accepted.
func NewAuthenticator(secret string, bypass bool) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Bypass: bypass}
}

// UserIDFromToken parses the token (with or without a "Bearer " prefix) and returns its 'sub' claim.
func (a *Authenticator) UserIDFromToken(tokenString string) (string, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return "", ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.Secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	// SupabaseのJWTはユーザーIDを 'sub' クレームに格納します。
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", ErrMissingSubject
	}
	return userID, nil
}

// BypassUserID returns the identity used for a request when authentication is bypassed.
func (a *Authenticator) BypassUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(BypassUserHeader)); id != "" {
		return id
	}
	return DefaultBypassUserID
}

// Middleware checks for a valid JWT in the Authorization header and stores the user ID in the context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Bypass {
			userID := a.BypassUserID(r)
			log.WithField("user_id", userID).Debug("[AuthMiddleware] BYPASS_AUTH enabled")
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
			return
		}

		userID, err := a.UserIDFromToken(authHeader)
		if err != nil {
			log.WithError(err).Warn("[AuthMiddleware] rejected token")
			if errors.Is(err, ErrMissingSubject) {
				writeJSONError(w, http.StatusUnauthorized, ErrMissingSubject.Error())
				return
			}
			writeJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		log.WithField("user_id", userID).Debug("[AuthMiddleware] authenticated")
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
