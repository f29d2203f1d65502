package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// Centroid levels.
const (
	CentroidLevelCoarse = 1
	CentroidLevelFine   = 2
)

type EmotionCentroid struct {
	Id        uint            `gorm:"primaryKey"`
	Level     int             `gorm:"not null;uniqueIndex:idx_centroid_level_key"`
	Key       string          `gorm:"type:text;not null;uniqueIndex:idx_centroid_level_key"`
	Vector    pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (EmotionCentroid) TableName() string {
	return "emotion_centroids"
}

type EmotionLeafRecord struct {
	Id        uint              `gorm:"primaryKey"`
	Position  int               `gorm:"not null;uniqueIndex"` // row in the original corpus
	Text      string            `gorm:"type:text;not null"`
	Label     string            `gorm:"type:text;not null;index"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	Vector    pgvector.Vector   `gorm:"type:vector"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
}

func (EmotionLeafRecord) TableName() string {
	return "emotion_leaf_records"
}
