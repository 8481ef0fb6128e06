package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/p-n-ai/course-player/internal/registration"
)

const tokenIssuer = "course-player"

// Claims binds a launch token to one registration.
type Claims struct {
	RegistrationID string `json:"rid"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies launch tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates an HS256 token issuer.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for reg. The subject is the learner ID.
func (t *Tokens) Issue(reg *registration.Registration) (string, error) {
	now := t.now()
	claims := &Claims{
		RegistrationID: reg.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   reg.LearnerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.RegistrationID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// registration ID in the request context.
func (t *Tokens) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := t.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withRegistrationID(r.Context(), claims.RegistrationID)))
	})
}

// RuntimeMiddleware authorizes runtime connections. Browsers cannot set
// headers on a WebSocket handshake, so the token may also come from the
// token query parameter. A registration query parameter, when present,
// must name the token's registration.
func (t *Tokens) RuntimeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("token")
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		}
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		claims, err := t.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if id := r.URL.Query().Get("registration"); id != "" && id != claims.RegistrationID {
			writeError(w, http.StatusForbidden, "token is for another registration")
			return
		}
		next.ServeHTTP(w, r.WithContext(withRegistrationID(r.Context(), claims.RegistrationID)))
	})
}

type ctxKey int

const registrationKey ctxKey = iota

func withRegistrationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, registrationKey, id)
}

// RegistrationIDFromContext returns the registration the request is
// authorized for.
func RegistrationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(registrationKey).(string)
	return id, ok && id != ""
}
