package linkage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectColumns = `provider, provider_user_id, local_user_id, access_token, refresh_token,
	token_type, expires_at, display_name, created_at, updated_at`

	// The WHERE clause turns an update of another user's linkage into "no row", so the
	// ownership check and the write happen in one statement.
	upsertSQL = `
INSERT INTO social_post_linkage (
	provider, provider_user_id, local_user_id, access_token, refresh_token,
	token_type, expires_at, display_name
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (provider, provider_user_id) DO UPDATE SET
	access_token  = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	token_type    = EXCLUDED.token_type,
	expires_at    = EXCLUDED.expires_at,
	display_name  = EXCLUDED.display_name,
	updated_at    = now()
WHERE social_post_linkage.local_user_id = EXCLUDED.local_user_id
RETURNING ` + selectColumns + `, (xmax = 0) AS inserted`
)

// PostgresRepository implements Repository using PostgreSQL.
// Access and refresh tokens are stored encrypted.
type PostgresRepository struct {
	db     *pgxpool.Pool
	cipher *TokenCipher
}

// NewPostgresRepository creates a new PostgreSQL linkage repository
func NewPostgresRepository(db *pgxpool.Pool, encryptionKey string) (*PostgresRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	c, err := NewTokenCipher(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create token cipher: %w", err)
	}

	return &PostgresRepository{
		db:     db,
		cipher: c,
	}, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, provider, providerUserID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM social_post_linkage WHERE provider = $1 AND provider_user_id = $2)`,
		provider, providerUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check linkage: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Get(ctx context.Context, provider, providerUserID string) (*Linkage, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM social_post_linkage WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	)
	l, err := r.scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound(provider, providerUserID)
		}
		return nil, fmt.Errorf("failed to get linkage: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, params UpsertParams) (*Linkage, bool, error) {
	if err := validateParams(params); err != nil {
		return nil, false, err
	}

	accessToken, err := r.cipher.Encrypt(params.Token.AccessToken)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshToken, err := r.cipher.Encrypt(params.Token.RefreshToken)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	row := r.db.QueryRow(ctx, upsertSQL,
		params.Provider,
		params.ProviderUserID,
		params.LocalUserID,
		accessToken,
		refreshToken,
		params.Token.TokenType,
		nullableTime(params.Token.Expiry),
		params.DisplayName,
	)

	var inserted bool
	l, err := r.scan(row, &inserted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, errConflict(params.Provider, params.ProviderUserID)
		}
		return nil, false, fmt.Errorf("failed to upsert linkage: %w", err)
	}
	return l, inserted, nil
}

func (r *PostgresRepository) ListForLocalUser(ctx context.Context, localUserID uuid.UUID) ([]Linkage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+` FROM social_post_linkage WHERE local_user_id = $1 ORDER BY created_at, provider_user_id`,
		localUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list linkages: %w", err)
	}
	defer rows.Close()

	var result []Linkage
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan linkage: %w", err)
		}
		result = append(result, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list linkages: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetToken(ctx context.Context, provider, providerUserID string) (*Token, error) {
	l, err := r.Get(ctx, provider, providerUserID)
	if err != nil {
		return nil, err
	}
	return l.Token(), nil
}

func (r *PostgresRepository) scan(row pgx.Row, extra ...any) (*Linkage, error) {
	var (
		l         Linkage
		expiresAt *time.Time
	)
	dest := []any{
		&l.Provider, &l.ProviderUserID, &l.LocalUserID, &l.AccessToken, &l.RefreshToken,
		&l.TokenType, &expiresAt, &l.DisplayName, &l.CreatedAt, &l.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if expiresAt != nil {
		l.Expiry = *expiresAt
	}

	var err error
	if l.AccessToken, err = r.cipher.Decrypt(l.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	if l.RefreshToken, err = r.cipher.Decrypt(l.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	return &l, nil
}

// Ping checks database connectivity, used by readiness checks
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
