package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"coa-registry/internal/auth"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type stubVerifier map[string]models.Identity

func (s stubVerifier) Verify(_ context.Context, rawToken string) (models.Identity, error) {
	id, ok := s[rawToken]
	if !ok {
		return models.Identity{}, errors.New("unknown token")
	}
	return id, nil
}

// stubProfiles assigns roles by subject, the way the profiles table would.
type stubProfiles map[string]models.Role

func (s stubProfiles) EnsureProfile(_ context.Context, id models.Identity) (*models.Profile, error) {
	if id.Subject == "broken" {
		return nil, errors.New("database unavailable")
	}
	return &models.Profile{ID: id.Subject, Email: id.Email, Role: s[id.Subject]}, nil
}

func newAuthRouter() http.Handler {
	verifier := stubVerifier{
		"collector-token": {Subject: "c1", Email: "c1@example.com"},
		"artist-token":    {Subject: "a1"},
		"staff-token":     {Subject: "s1"},
		"broken-token":    {Subject: "broken"},
	}
	profiles := stubProfiles{"a1": models.RoleArtist, "s1": models.RoleReviewer}

	whoami := func(w http.ResponseWriter, r *http.Request) {
		actor := auth.ActorFrom(r.Context())
		w.Header().Set("X-Actor", actor.UserID)
		w.Header().Set("X-Role", string(actor.Role))
		w.WriteHeader(http.StatusOK)
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, profiles, logger.Discard()))
		r.Get("/me", whoami)
		r.With(auth.RequireArtistOrStaff).Get("/artist", whoami)
		r.With(auth.RequireStaff).Get("/admin", whoami)
	})
	return r
}

func call(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_AttachesActorFromProfile(t *testing.T) {
	rec := call(newAuthRouter(), "/me", "staff-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", rec.Header().Get("X-Actor"))
	assert.Equal(t, string(models.RoleReviewer), rec.Header().Get("X-Role"))
}

func TestMiddleware_Rejections(t *testing.T) {
	h := newAuthRouter()

	assert.Equal(t, http.StatusUnauthorized, call(h, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, "/me", "forged").Code)
	assert.Equal(t, http.StatusInternalServerError, call(h, "/me", "broken-token").Code)
}

func TestRoleGuards(t *testing.T) {
	h := newAuthRouter()

	tests := []struct {
		path  string
		token string
		want  int
	}{
		{"/artist", "collector-token", http.StatusForbidden},
		{"/artist", "artist-token", http.StatusOK},
		{"/artist", "staff-token", http.StatusOK},
		{"/admin", "collector-token", http.StatusForbidden},
		{"/admin", "artist-token", http.StatusForbidden},
		{"/admin", "staff-token", http.StatusOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, call(h, tt.path, tt.token).Code, "%s with %s", tt.path, tt.token)
	}
}

func TestActorFrom_EmptyContext(t *testing.T) {
	assert.False(t, auth.ActorFrom(context.Background()).Authenticated())
}
