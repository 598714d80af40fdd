// Package auth turns request credentials into the actor that permission
// checks run against.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/staffhub/staffhub/internal/platform/httpx"
	"github.com/staffhub/staffhub/internal/shared"
)

// Resolver extracts the actor behind a request. It returns shared.ErrNoActor
// when the request carries no credentials it understands.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*shared.Actor, error)
}

// ChainResolver asks each resolver in turn until one yields an actor.
type ChainResolver []Resolver

// Resolve implements Resolver.
func (c ChainResolver) Resolve(ctx context.Context, r *http.Request) (*shared.Actor, error) {
	for _, resolver := range c {
		actor, err := resolver.Resolve(ctx, r)
		if errors.Is(err, shared.ErrNoActor) {
			continue
		}
		return actor, err
	}
	return nil, shared.ErrNoActor
}

// Middleware resolves the actor once per request and stores it in the request
// context. Anonymous requests pass through without an actor; rejected
// credentials end the request with 401.
func Middleware(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := resolver.Resolve(r.Context(), r)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
			case errors.Is(err, shared.ErrNoActor):
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrInvalidToken):
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			default:
				logger.Warn("resolve actor", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "credentials could not be verified")
			}
		})
	}
}
