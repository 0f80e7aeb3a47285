package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
)

// InMemoryAccountStore implements AccountStore in process memory
type InMemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*Account
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		accounts: make(map[uuid.UUID]*Account),
	}
}

func (s *InMemoryAccountStore) Create(ctx context.Context, displayName string) (*Account, error) {
	acct := &Account{
		ID:          uuid.New(),
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.accounts[acct.ID] = acct
	s.mu.Unlock()

	copied := *acct
	return &copied, nil
}

func (s *InMemoryAccountStore) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.NotFound("account", id.String())
	}
	copied := *acct
	return &copied, nil
}

func (s *InMemoryAccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return apperrors.NotFound("account", id.String())
	}
	delete(s.accounts, id)
	return nil
}

const accountSchemaSQL = `
CREATE TABLE IF NOT EXISTS social_post_account (
	id           UUID        PRIMARY KEY,
	display_name TEXT        NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresAccountStore implements AccountStore using PostgreSQL
type PostgresAccountStore struct {
	db *pgxpool.Pool
}

func NewPostgresAccountStore(db *pgxpool.Pool) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

// EnsureSchema creates the account table if it does not exist
func (s *PostgresAccountStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, accountSchemaSQL); err != nil {
		return fmt.Errorf("failed to create account schema: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) Create(ctx context.Context, displayName string) (*Account, error) {
	acct := Account{ID: uuid.New(), DisplayName: displayName}
	err := s.db.QueryRow(ctx,
		`INSERT INTO social_post_account (id, display_name) VALUES ($1, $2) RETURNING created_at`,
		acct.ID, displayName,
	).Scan(&acct.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	return &acct, nil
}

func (s *PostgresAccountStore) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	var acct Account
	err := s.db.QueryRow(ctx,
		`SELECT id, display_name, created_at FROM social_post_account WHERE id = $1`, id,
	).Scan(&acct.ID, &acct.DisplayName, &acct.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("account", id.String())
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &acct, nil
}

func (s *PostgresAccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM social_post_account WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("account", id.String())
	}
	return nil
}
