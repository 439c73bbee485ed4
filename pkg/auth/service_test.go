package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shishobooks/yomu/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return NewService(db, "test-secret")
}

func TestCreateFirstAdmin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateFirstAdmin(ctx, "admin", "password123")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.NotEqual(t, "password123", user.PasswordHash)

	count, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Setup only works once.
	_, err = svc.CreateFirstAdmin(ctx, "admin2", "password123")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateFirstAdmin(ctx, "Admin", "password123")
	require.NoError(t, err)

	// Username matching is case-insensitive.
	user, err := svc.Authenticate(ctx, "admin", "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Authenticate(ctx, "admin", "wrong password")
	assert.Error(t, err)

	_, err = svc.Authenticate(ctx, "nobody", "password123")
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.CreateFirstAdmin(ctx, "admin", "password123")
	require.NoError(t, err)

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.WithinDuration(t, time.Now().Add(TokenExpiry), claims.ExpiresAt.Time, time.Minute)

	// A token signed with a different secret is rejected.
	other := NewService(nil, "other-secret")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)

	assert.True(t, CheckPassword("password123", hash))
	assert.False(t, CheckPassword("password124", hash))
}
