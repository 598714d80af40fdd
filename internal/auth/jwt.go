package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/staffhub/staffhub/internal/shared"
)

// ErrInvalidToken reports a bearer token that failed verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload carrying the actor.
type Claims struct {
	Role       string   `json:"role"`
	AccountIDs []string `json:"account_ids,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig configures HMAC signed bearer tokens.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// JWTResolver verifies bearer tokens and issues new ones.
type JWTResolver struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewJWTResolver builds a resolver. TTL defaults to one hour.
func NewJWTResolver(cfg JWTConfig) *JWTResolver {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &JWTResolver{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
}

// Resolve implements Resolver for "Authorization: Bearer" headers.
func (j *JWTResolver) Resolve(ctx context.Context, r *http.Request) (*shared.Actor, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, shared.ErrNoActor
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("%w: invalid authorization header format", ErrInvalidToken)
	}
	return j.Parse(strings.TrimSpace(raw))
}

// Parse verifies a token and returns its actor.
func (j *JWTResolver) Parse(raw string) (*shared.Actor, error) {
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, classifyJWTError(err))
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, err := shared.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return shared.NewActor(claims.Subject, role, claims.AccountIDs...), nil
}

// Issue signs a token for actor.
func (j *JWTResolver) Issue(actor *shared.Actor) (string, time.Time, error) {
	now := j.now()
	expires := now.Add(j.ttl)
	claims := Claims{
		Role:       string(actor.Role),
		AccountIDs: actor.AccountIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func classifyJWTError(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "invalid token issuer"
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return "invalid token audience"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid token signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "token could not be verified"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	default:
		return "invalid token"
	}
}
