package linkage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS social_post_linkage (
	provider          TEXT        NOT NULL,
	provider_user_id  TEXT        NOT NULL,
	local_user_id     UUID        NOT NULL,
	access_token      TEXT        NOT NULL,
	refresh_token     TEXT        NOT NULL DEFAULT '',
	token_type        TEXT        NOT NULL DEFAULT '',
	expires_at        TIMESTAMPTZ,
	display_name      TEXT        NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (provider, provider_user_id)
);

CREATE INDEX IF NOT EXISTS social_post_linkage_local_user_id_idx
	ON social_post_linkage (local_user_id);
`

// EnsureSchema creates the linkage table if it does not exist
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create linkage schema: %w", err)
	}
	return nil
}
