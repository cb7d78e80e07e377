package auth

import (
	"context"
	"fmt"
	"net/http"

	"coa-registry/internal/apperr"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/utils"
)

type contextKey string

const actorKey contextKey = "actor"

// ProfileEnsurer loads the caller's profile, creating it on first login.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, id models.Identity) (*models.Profile, error)
}

// Middleware verifies the bearer token and attaches the caller's Actor, with
// the role read from the profile store.
func Middleware(verifier TokenVerifier, profiles ProfileEnsurer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err))
				return
			}

			identity, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err))
				return
			}

			profile, err := profiles.EnsureProfile(r.Context(), identity)
			if err != nil {
				log.Error("AUTH", fmt.Sprintf("Failed to load profile for %s: %v", identity.Subject, err))
				utils.WriteError(w, err)
				return
			}

			ctx := WithActor(r.Context(), models.ActorFromProfile(profile))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns the authenticated caller, or the zero Actor.
func ActorFrom(ctx context.Context) models.Actor {
	if actor, ok := ctx.Value(actorKey).(models.Actor); ok {
		return actor
	}
	return models.Actor{}
}

// RequireStaff rejects callers without a staff role. Services re-check.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := EnsureStaff(ActorFrom(r.Context())); err != nil {
			utils.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireArtistOrStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := EnsureArtistOrStaff(ActorFrom(r.Context())); err != nil {
			utils.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
