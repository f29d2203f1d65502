package specification

import (
	"emotion-diary-be/pkg/emotion"

	"gorm.io/gorm"
)

// ByCentroidLevel filters centroids to one level.
type ByCentroidLevel struct {
	Level int
}

func (s ByCentroidLevel) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("level = ?", s.Level)
}

// ByEmotion filters leaf records to one label.
type ByEmotion struct {
	Label emotion.Label
}

func (s ByEmotion) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("label = ?", string(s.Label))
}
