package postgres

import (
	"context"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS plan_history_records (
	item_id        TEXT        NOT NULL,
	version_num    INTEGER     NOT NULL,
	version        TEXT        NOT NULL,
	plan_id        TEXT        NOT NULL,
	interval       TEXT        NOT NULL,
	interval_count TEXT        NOT NULL,
	amount         TEXT        NOT NULL,
	description    TEXT        NOT NULL DEFAULT '',
	environment    TEXT        NOT NULL,
	sku            TEXT        NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (item_id, version_num)
);

CREATE TABLE IF NOT EXISTS plan_latest (
	item_id    TEXT        PRIMARY KEY,
	plan_id    TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the plan history tables when missing
func EnsureSchema(ctx context.Context, client *postgres.Client) error {
	if _, err := client.Querier(ctx).ExecContext(ctx, schema); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create plan history tables").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
