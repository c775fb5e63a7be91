package processing

import (
	"context"
	"fmt"

	"github.com/censys/rssi-agg/pkg/config"
	"github.com/censys/rssi-agg/pkg/storage"
	"github.com/censys/rssi-agg/pkg/storage/file"
	pgstore "github.com/censys/rssi-agg/pkg/storage/postgres"
)

// OpenSink builds the sink selected by cfg. The returned close func releases
// any connections and is never nil.
func OpenSink(ctx context.Context, cfg config.SinkConfig) (storage.Sink, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgstore.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() {}, fmt.Errorf("db connect: %w", err)
		}
		if err := pgstore.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, func() {}, fmt.Errorf("db schema: %w", err)
		}
		repo := pgstore.NewRepository(pool)
		return repo, repo.Close, nil
	case config.BackendFile, "":
		return file.NewSink(cfg.Path), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}
}
