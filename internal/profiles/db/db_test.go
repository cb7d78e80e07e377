package db_test

import (
	"context"
	"testing"
	"time"

	"coa-registry/internal/database"
	"coa-registry/internal/models"
	"coa-registry/internal/profiles/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *db.DB {
	bunDB, err := database.OpenSQLite(context.Background(), "profiles_"+uuid.NewString())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func newProfile(id string, role models.Role) models.Profile {
	now := time.Now().UTC()
	return models.Profile{ID: id, Email: id + "@example.com", DisplayName: id, Role: role, CreatedAt: now, UpdatedAt: now}
}

func TestUpsertProfile_KeepsRole(t *testing.T) {
	profileDB := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, profileDB.UpsertProfile(ctx, newProfile("u1", models.RoleCollector)))
	_, err := profileDB.UpdateRole(ctx, "u1", models.RoleReviewer)
	require.NoError(t, err)

	changed := newProfile("u1", models.RoleCollector)
	changed.Email = "new@example.com"
	require.NoError(t, profileDB.UpsertProfile(ctx, changed))

	got, err := profileDB.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.Equal(t, models.RoleReviewer, got.Role)
}

func TestUpdateRole_CollectorStoresNull(t *testing.T) {
	profileDB := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, profileDB.UpsertProfile(ctx, newProfile("u1", models.RoleCollector)))
	_, err := profileDB.UpdateRole(ctx, "u1", models.RoleArtist)
	require.NoError(t, err)
	rows, err := profileDB.UpdateRole(ctx, "u1", models.RoleCollector)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	collector := models.RoleCollector
	list, err := profileDB.ListProfiles(ctx, &collector)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.RoleCollector, list[0].Role)

	rows, err = profileDB.UpdateRole(ctx, "missing", models.RoleArtist)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestCountRoleAndDelete(t *testing.T) {
	profileDB := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"o1", "o2", "c1"} {
		require.NoError(t, profileDB.UpsertProfile(ctx, newProfile(id, models.RoleCollector)))
	}
	_, _ = profileDB.UpdateRole(ctx, "o1", models.RoleOwner)
	_, _ = profileDB.UpdateRole(ctx, "o2", models.RoleOwner)

	owners, err := profileDB.CountRole(ctx, models.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, 2, owners)

	require.NoError(t, profileDB.DeleteProfile(ctx, "o2"))
	_, err = profileDB.GetProfile(ctx, "o2")
	assert.True(t, database.IsNoRows(err))

	all, err := profileDB.ListProfiles(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
