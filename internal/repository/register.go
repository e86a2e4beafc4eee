package repository

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/joseph-ayodele/clinical-notes/internal/blob"
)

func init() {
	blob.Providers.Register("postgres", func(ctx context.Context, params map[string]string) (blob.Store, error) {
		cfg := ConfigFromParams(params)
		drv, pool, err := Open(ctx, cfg, slog.Default())
		if err != nil {
			return nil, err
		}
		store := NewBlobStore(drv, func() error {
			Close(drv, pool, slog.Default())
			return nil
		}, slog.Default())
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	})

	blob.Providers.Register("sqlite", func(ctx context.Context, params map[string]string) (blob.Store, error) {
		drv, err := OpenSQLite(params["path"], slog.Default())
		if err != nil {
			return nil, err
		}
		store := NewBlobStore(drv, drv.Close, slog.Default())
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	})
}

// ConfigFromParams reads pool settings from registry parameters. Malformed
// or missing values are left zero so Open keeps the pgx defaults.
func ConfigFromParams(params map[string]string) Config {
	i32 := func(k string) int32 {
		n, _ := strconv.ParseInt(params[k], 10, 32)
		return int32(n)
	}
	dur := func(k string) time.Duration {
		d, _ := time.ParseDuration(params[k])
		return d
	}
	return Config{
		DSN:              params["dsn"],
		MaxConns:         i32("max_conns"),
		MinConns:         i32("min_conns"),
		MaxConnLifetime:  dur("max_conn_lifetime"),
		MaxConnIdleTime:  dur("max_conn_idle_time"),
		DialTimeout:      dur("dial_timeout"),
		StatementTimeout: dur("statement_timeout"),
	}
}
