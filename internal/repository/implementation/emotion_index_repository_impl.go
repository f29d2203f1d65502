package implementation

import (
	"context"
	"fmt"

	"emotion-diary-be/internal/mapper"
	"emotion-diary-be/internal/model"
	"emotion-diary-be/internal/repository/contract"
	"emotion-diary-be/internal/repository/specification"
	"emotion-diary-be/pkg/index"

	"gorm.io/gorm"
)

const importBatchSize = 500

type EmotionIndexRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EmotionIndexMapper
}

func NewEmotionIndexRepository(db *gorm.DB) contract.EmotionIndexRepository {
	return &EmotionIndexRepositoryImpl{
		db:     db,
		mapper: mapper.NewEmotionIndexMapper(),
	}
}

func (r *EmotionIndexRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *EmotionIndexRepositoryImpl) FindCentroids(ctx context.Context, specs ...specification.Specification) ([]model.EmotionCentroid, error) {
	var rows []model.EmotionCentroid
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EmotionIndexRepositoryImpl) FindLeaves(ctx context.Context, specs ...specification.Specification) ([]model.EmotionLeafRecord, error) {
	var rows []model.EmotionLeafRecord
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *EmotionIndexRepositoryImpl) LoadArtifacts(ctx context.Context) (index.Artifacts, error) {
	centroids, err := r.FindCentroids(ctx,
		specification.OrderBy{Field: "level"},
		specification.OrderBy{Field: "key"},
	)
	if err != nil {
		return index.Artifacts{}, fmt.Errorf("load centroids: %w", err)
	}
	leaves, err := r.FindLeaves(ctx, specification.OrderBy{Field: "position"})
	if err != nil {
		return index.Artifacts{}, fmt.Errorf("load leaf records: %w", err)
	}
	return r.mapper.ToArtifacts(centroids, leaves)
}

func (r *EmotionIndexRepositoryImpl) Migrate(ctx context.Context) error {
	return migrate(r.db.WithContext(ctx))
}

func migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}
	if err := db.AutoMigrate(&model.EmotionCentroid{}, &model.EmotionLeafRecord{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (r *EmotionIndexRepositoryImpl) Import(ctx context.Context, a index.Artifacts) error {
	centroids, leaves := r.mapper.FromArtifacts(a)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := migrate(tx); err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.EmotionCentroid{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.EmotionLeafRecord{}).Error; err != nil {
			return err
		}
		if len(centroids) > 0 {
			if err := tx.CreateInBatches(centroids, importBatchSize).Error; err != nil {
				return fmt.Errorf("insert centroids: %w", err)
			}
		}
		if len(leaves) > 0 {
			if err := tx.CreateInBatches(leaves, importBatchSize).Error; err != nil {
				return fmt.Errorf("insert leaf records: %w", err)
			}
		}
		return nil
	})
}
