package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clowder-server/internal/shared/config"
	"clowder-server/internal/shared/errors"
	"clowder-server/internal/shared/response"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims identifies an anonymous visitor session. Sessions are
// minted on first contact; there is no account or login step.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	Nickname  string `json:"nickname"`
	jwt.RegisteredClaims
}

type contextKey string

const SessionContextKey contextKey = "session"

const sessionCookieName = "clowder_session"

func sessionSecret() (string, error) {
	secret := config.GlobalConfig.Session.Secret
	if secret == "" {
		return "", fmt.Errorf("SESSION_SECRET environment variable is required but not set")
	}
	return secret, nil
}

// GenerateSessionToken signs a visitor token for the given session.
func GenerateSessionToken(sessionID, nickname string) (string, error) {
	secret, err := sessionSecret()
	if err != nil {
		return "", fmt.Errorf("cannot generate session token: %w", err)
	}

	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		Nickname:  nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(config.GlobalConfig.Session.TokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("session_%s", sessionID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateSessionToken parses and verifies a visitor token.
func ValidateSessionToken(tokenString string) (*SessionClaims, error) {
	secret, err := sessionSecret()
	if err != nil {
		return nil, fmt.Errorf("cannot validate session token: %w", err)
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// SetSessionCookie attaches the signed visitor token to the response.
func SetSessionCookie(w http.ResponseWriter, token string) {
	cfg := config.GlobalConfig

	cookie := createSessionCookie()
	cookie.Value = token
	cookie.MaxAge = int(cfg.Session.TokenExpiration.Seconds())

	http.SetCookie(w, cookie)
}

func createSessionCookie() *http.Cookie {
	cfg := config.GlobalConfig

	return &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		Domain:   extractDomain(cfg.Frontend.URL),
		HttpOnly: true,
		Secure:   cfg.Session.CookieSecure,
		SameSite: parseSameSite(cfg.Session.CookieSameSite),
	}
}

func extractDomain(frontendURL string) string {
	parsedURL, err := url.Parse(frontendURL)
	if err != nil || parsedURL.Host == "" {
		return ""
	}

	host := strings.Split(parsedURL.Host, ":")[0]
	if host == "localhost" || host == "127.0.0.1" {
		return ""
	}

	return host
}

func parseSameSite(sameSiteStr string) http.SameSite {
	switch sameSiteStr {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// EnsureSession attaches a visitor session to every request, minting a
// fresh one when the cookie is missing or invalid. Visitors are never
// rejected here; gameplay is open to anyone who loads the page.
func EnsureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "session",
			"method", r.Method,
			"path", r.URL.Path,
		)

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if claims, err := ValidateSessionToken(cookie.Value); err == nil {
				ctx := context.WithValue(r.Context(), SessionContextKey, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			logger.Debug("Replacing invalid session token")
		}

		sessionID := uuid.NewString()
		token, err := GenerateSessionToken(sessionID, "")
		if err != nil {
			response.Error(w, r, logger, errors.WrapInternal("failed to mint visitor session", err))
			return
		}
		SetSessionCookie(w, token)

		claims := &SessionClaims{SessionID: sessionID}
		ctx := context.WithValue(r.Context(), SessionContextKey, claims)
		logger.Debug("Minted visitor session", "session_id", sessionID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionFromContext returns the visitor session attached by
// EnsureSession, or nil when the middleware did not run.
func GetSessionFromContext(r *http.Request) *SessionClaims {
	if claims, ok := r.Context().Value(SessionContextKey).(*SessionClaims); ok {
		return claims
	}
	return nil
}
