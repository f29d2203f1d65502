package bootstrap

import (
	"context"
	"fmt"
	"time"

	"emotion-diary-be/internal/config"
	"emotion-diary-be/internal/repository/implementation"
	"emotion-diary-be/pkg/database"
	"emotion-diary-be/pkg/index"

	"go.uber.org/zap"
)

// Index sources.
const (
	IndexSourceFile     = "file"
	IndexSourcePostgres = "postgres"
)

// LoadIndex builds the embedding index from the configured source. Any
// integrity problem surfaces as index.ErrDataIntegrity.
func LoadIndex(ctx context.Context, cfg *config.Config, log *zap.Logger) (*index.EmbeddingIndex, error) {
	switch cfg.Index.Source {
	case "", IndexSourceFile:
		return index.LoadFiles(cfg.Index.Dir)
	case IndexSourcePostgres:
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, log, database.Options{})
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		artifacts, err := implementation.NewEmotionIndexRepository(db).LoadArtifacts(ctx)
		if err != nil {
			return nil, err
		}
		return index.Load(artifacts)
	}
	return nil, fmt.Errorf("unknown INDEX_SOURCE %q (want %s or %s)", cfg.Index.Source, IndexSourceFile, IndexSourcePostgres)
}
