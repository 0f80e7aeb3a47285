package linkage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testEncryptionKey = "test-encryption-key-32-characters"

func setupPostgres(t *testing.T) *pgxpool.Pool {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	// idempotent
	require.NoError(t, EnsureSchema(ctx, pool))
	return pool
}

func TestPostgresRepository(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	runRepositoryContract(t, func(t *testing.T) Repository {
		_, err := pool.Exec(ctx, "TRUNCATE social_post_linkage")
		require.NoError(t, err)

		repo, err := NewPostgresRepository(pool, testEncryptionKey)
		require.NoError(t, err)
		return repo
	})

	t.Run("TokensEncryptedAtRest", func(t *testing.T) {
		repo, err := NewPostgresRepository(pool, testEncryptionKey)
		require.NoError(t, err)

		_, _, err = repo.Upsert(ctx, params(uuid.New(), "at-rest", "plain-token"))
		require.NoError(t, err)

		var stored string
		err = pool.QueryRow(ctx,
			"SELECT access_token FROM social_post_linkage WHERE provider = 'imgur' AND provider_user_id = 'at-rest'",
		).Scan(&stored)
		require.NoError(t, err)
		assert.NotEqual(t, "plain-token", stored)
		assert.NoError(t, repo.Ping(ctx))
	})
}

func TestNewPostgresRepositoryValidation(t *testing.T) {
	_, err := NewPostgresRepository(nil, testEncryptionKey)
	assert.Error(t, err)
}
