package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/flexprice/plansync/internal/config"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	_ "github.com/lib/pq"
)

type txKey struct{}

// Querier is the subset of *sql.DB and *sql.Tx repositories use
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Client wraps a Postgres connection pool and carries transactions in context
type Client struct {
	db  *sql.DB
	log *logger.Logger
}

// NewClient opens a lib/pq pool and verifies the connection
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	db, err := sql.Open("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid Postgres configuration").
			Mark(ierr.ErrDatabase)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to Postgres").
			WithReportableDetails(map[string]interface{}{
				"host":   cfg.Postgres.Host,
				"dbname": cfg.Postgres.DBName,
			}).
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to Postgres", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
	return NewClientFromDB(db, log), nil
}

// NewClientFromDB wraps an existing pool
func NewClientFromDB(db *sql.DB, log *logger.Logger) *Client {
	return &Client{db: db, log: log}
}

// DB returns the underlying pool
func (c *Client) DB() *sql.DB {
	return c.db
}

// TxFromContext returns the transaction started by WithTx, if any
func (c *Client) TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// Querier returns the transaction in ctx, or the pool outside one
func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
// A transaction already present in ctx is reused.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to start transaction").
			Mark(ierr.ErrDatabase)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.log.Errorw("failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Close closes the pool
func (c *Client) Close() error {
	return c.db.Close()
}
