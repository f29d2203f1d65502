package contract

import (
	"context"

	"emotion-diary-be/internal/model"
	"emotion-diary-be/internal/repository/specification"
	"emotion-diary-be/pkg/index"
)

// EmotionIndexRepository is the Postgres source of the emotion index artifacts.
type EmotionIndexRepository interface {
	FindCentroids(ctx context.Context, specs ...specification.Specification) ([]model.EmotionCentroid, error)
	FindLeaves(ctx context.Context, specs ...specification.Specification) ([]model.EmotionLeafRecord, error)

	// LoadArtifacts reads every row in index order.
	LoadArtifacts(ctx context.Context) (index.Artifacts, error)

	// Migrate enables pgvector and creates the index tables.
	Migrate(ctx context.Context) error

	// Import replaces the stored index with a in one transaction.
	Import(ctx context.Context, a index.Artifacts) error
}
