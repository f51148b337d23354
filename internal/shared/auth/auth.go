package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken cobre token ausente, malformado, expirado ou com issuer errado
var ErrInvalidToken = errors.New("invalid token")

// Tokens emite e valida JWT HS256 onde sub é a identidade do chamador
// (usuário, autoridade da house ou keeper).
type Tokens struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

func NewTokens(secret, issuer string, ttl time.Duration) (*Tokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("AUTH_JWT_SECRET must have at least 16 bytes")
	}
	return &Tokens{Secret: []byte(secret), Issuer: issuer, TTL: ttl, Now: time.Now}, nil
}

// Issue gera um token para subject
func (t *Tokens) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("subject required")
	}
	now := t.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    t.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
}

// Verify valida assinatura, issuer e validade e retorna o subject
func (t *Tokens) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.Now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	return claims.Subject, nil
}

type ctxKey struct{}

// WithIdentity coloca a identidade autenticada no contexto
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// Identity retorna a identidade autenticada ("" se não houver)
func Identity(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware exige "Authorization: Bearer <jwt>" e injeta a identidade no contexto
func (t *Tokens) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || raw == "" {
			writeUnauthorized(w, "missing bearer token")
			return
		}
		id, err := t.Verify(raw)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"error":"Unauthenticated","message":%q}`, msg)
}
