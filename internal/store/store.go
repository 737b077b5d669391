// Package store implements core.Store on top of an .xlsx workbook
// (excelize) or a SQL database (PostgreSQL through pgx or lib/pq, SQLite
// through modernc.org/sqlite).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/stockroom/internal/config"
	"github.com/JonMunkholm/stockroom/internal/core"
)

const defaultConnectTimeout = 10 * time.Second

var (
	_ core.Store = (*Workbook)(nil)
	_ core.Store = (*Relational)(nil)
)

// Open builds the store selected by STORE_BACKEND. A relational store that
// cannot be reached is still returned, together with an error wrapping
// core.ErrStoreUnavailable, so callers can start degraded.
func Open(ctx context.Context, cfg *config.Config) (core.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendSpreadsheet:
		wb, err := NewWorkbook(cfg.Store.WorkbookPath, cfg.Store.CreateWorkbook)
		if err != nil {
			return nil, err
		}
		return wb, nil

	case config.BackendRelational:
		rel, err := OpenRelational(RelationalConfig{
			Driver:          cfg.Database.Driver,
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}

		timeout := cfg.Database.ConnectTimeout
		if timeout <= 0 {
			timeout = defaultConnectTimeout
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return rel, rel.Ping(pingCtx)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
