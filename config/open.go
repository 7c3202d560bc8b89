package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/reoring/skemadb"
	"github.com/reoring/skemadb/field"
	"github.com/reoring/skemadb/store/memory"
	redisstore "github.com/reoring/skemadb/store/redis"
	"github.com/reoring/skemadb/store/sqlite"
)

// NewLogger builds a zerolog logger writing to w. An unknown level falls back
// to info.
func NewLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore opens the configured store. The returned Closer releases its
// connection; callers close it when done.
func OpenStore(ctx context.Context, cfg StoreConfig) (skemadb.Store, io.Closer, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return memory.New(cfg.Namespace), nopCloser{}, nil
	case DriverSQLite:
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate %s: %w", cfg.DSN, err)
		}
		return sqlite.NewDocumentStore(db, cfg.Namespace), db, nil
	case DriverRedis:
		s, err := redisstore.Open(redisstore.Options{
			URL:       cfg.DSN,
			Prefix:    cfg.Prefix,
			Namespace: cfg.Namespace,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := ctx.Err(); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// LoadSchema resolves the YAML schema descriptor at path. An empty path
// yields a schema accepting any value.
func LoadSchema(path string) (*field.Field, error) {
	if path == "" {
		return field.Any(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	f, err := field.ResolveYAML(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return f, nil
}
