package mapper

import (
	"fmt"

	"emotion-diary-be/internal/model"
	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/index"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type EmotionIndexMapper struct{}

func NewEmotionIndexMapper() *EmotionIndexMapper {
	return &EmotionIndexMapper{}
}

// ToArtifacts assembles rows into index artifacts. Leaves must already be
// ordered by position. Validation beyond label parsing is left to index.Load.
func (m *EmotionIndexMapper) ToArtifacts(centroids []model.EmotionCentroid, leaves []model.EmotionLeafRecord) (index.Artifacts, error) {
	var a index.Artifacts
	for _, c := range centroids {
		switch c.Level {
		case model.CentroidLevelCoarse:
			label, err := emotion.Parse(c.Key)
			if err != nil {
				return index.Artifacts{}, fmt.Errorf("%w: coarse centroid key %q", index.ErrDataIntegrity, c.Key)
			}
			a.Coarse = append(a.Coarse, index.Centroid{Label: label, Vector: c.Vector.Slice()})
		case model.CentroidLevelFine:
			a.Fine = append(a.Fine, index.FineCentroid{Key: c.Key, Vector: c.Vector.Slice()})
		default:
			return index.Artifacts{}, fmt.Errorf("%w: centroid %q has level %d", index.ErrDataIntegrity, c.Key, c.Level)
		}
	}

	a.LeafVectors = make([]index.Vector, len(leaves))
	a.LeafMetadata = make([]index.LeafMetadata, len(leaves))
	for i, l := range leaves {
		if l.Position != i {
			return index.Artifacts{}, fmt.Errorf("%w: leaf position %d at row %d", index.ErrDataIntegrity, l.Position, i)
		}
		label, err := emotion.Parse(l.Label)
		if err != nil {
			return index.Artifacts{}, fmt.Errorf("%w: leaf %d has label %q", index.ErrDataIntegrity, i, l.Label)
		}
		situation, _ := l.Metadata["situation"].(string)
		a.LeafVectors[i] = l.Vector.Slice()
		a.LeafMetadata[i] = index.LeafMetadata{Text: l.Text, Label: label, Situation: situation}
	}
	return a, nil
}

// FromArtifacts is the inverse of ToArtifacts.
func (m *EmotionIndexMapper) FromArtifacts(a index.Artifacts) ([]model.EmotionCentroid, []model.EmotionLeafRecord) {
	centroids := make([]model.EmotionCentroid, 0, len(a.Coarse)+len(a.Fine))
	for _, c := range a.Coarse {
		centroids = append(centroids, model.EmotionCentroid{
			Level:  model.CentroidLevelCoarse,
			Key:    string(c.Label),
			Vector: pgvector.NewVector(c.Vector),
		})
	}
	for _, c := range a.Fine {
		centroids = append(centroids, model.EmotionCentroid{
			Level:  model.CentroidLevelFine,
			Key:    c.Key,
			Vector: pgvector.NewVector(c.Vector),
		})
	}

	leaves := make([]model.EmotionLeafRecord, len(a.LeafMetadata))
	for i, meta := range a.LeafMetadata {
		var extra datatypes.JSONMap
		if meta.Situation != "" {
			extra = datatypes.JSONMap{"situation": meta.Situation}
		}
		var vec pgvector.Vector
		if i < len(a.LeafVectors) {
			vec = pgvector.NewVector(a.LeafVectors[i])
		}
		leaves[i] = model.EmotionLeafRecord{
			Position: i,
			Text:     meta.Text,
			Label:    string(meta.Label),
			Metadata: extra,
			Vector:   vec,
		}
	}
	return centroids, leaves
}
