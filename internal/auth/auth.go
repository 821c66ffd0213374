// Package auth gates the write surface of the analysis service. Callers
// present either an HS256 bearer token carrying the run scope or, in local
// development, a shared debug token header.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// RunScope is the scope a bearer token needs to launch analysis jobs.
const RunScope = "analysis:run"

// Verifier checks request credentials.
type Verifier struct {
	secret          []byte
	allowDebugToken bool
	debugToken      string
}

// NewVerifier builds a verifier over the shared HS256 secret. The debug
// token path is only honored when explicitly enabled.
func NewVerifier(secret string, allowDebugToken bool, debugToken string) *Verifier {
	return &Verifier{
		secret:          []byte(secret),
		allowDebugToken: allowDebugToken,
		debugToken:      debugToken,
	}
}

// VerifyRequest returns nil when the request may run analysis jobs.
func (v *Verifier) VerifyRequest(r *http.Request) error {
	if v.allowDebugToken {
		if token := r.Header.Get("X-Debug-Token"); token != "" && token == v.debugToken {
			return nil
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return v.verifyToken(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return errors.New("authentication required: bearer token")
}

func (v *Verifier) verifyToken(tokenStr string) error {
	if len(v.secret) == 0 {
		return errors.New("no signing secret configured")
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return fmt.Errorf("token parse error: %w", err)
	}
	if !token.Valid {
		return errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}

	if scope, ok := claims["scope"].(string); ok {
		if !strings.Contains(scope, RunScope) {
			return errors.New("missing required scope")
		}
		return nil
	}
	if roles, ok := claims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok && s == RunScope {
				return nil
			}
		}
		return errors.New("missing required scope in roles")
	}
	return errors.New("missing scope/roles")
}

// Middleware rejects requests the verifier does not accept.
func Middleware(v *Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.VerifyRequest(r); err != nil {
				log.Printf("[auth] request rejected: %v", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
