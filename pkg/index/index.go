package index

import (
	"sort"

	"emotion-diary-be/pkg/emotion"
)

// Centroid is the representative vector of one emotion at the coarse level.
type Centroid struct {
	Label  emotion.Label
	Vector Vector
}

// FineCentroid is a second-level centroid keyed by a compound label such as
// "기쁨_친구". It is loaded and validated but not used for classification.
type FineCentroid struct {
	Key    string
	Vector Vector
}

// LeafMetadata is one row of the leaf metadata table. Row i describes leaf vector i.
type LeafMetadata struct {
	Text      string
	Label     emotion.Label
	Situation string
}

// LeafRecord is an individual historical example.
type LeafRecord struct {
	ID        int
	Text      string
	Label     emotion.Label
	Situation string
	Vector    Vector
}

// Artifacts is the raw input of Load, as read from files or the database.
type Artifacts struct {
	Coarse       []Centroid
	Fine         []FineCentroid
	LeafVectors  []Vector
	LeafMetadata []LeafMetadata
}

// EmbeddingIndex holds the coarse centroids and the leaf corpus. It is built
// once by Load and never written afterwards, so concurrent readers need no
// synchronization. Slices returned by its accessors are shared and must be
// treated as read-only.
type EmbeddingIndex struct {
	dim     int
	coarse  []Centroid
	fine    []FineCentroid
	leaves  []LeafRecord
	byLabel map[emotion.Label][]LeafRecord
}

// Load validates the artifacts and builds an index. On any inconsistency it
// returns a *DataIntegrityError and no index.
func Load(a Artifacts) (*EmbeddingIndex, error) {
	if len(a.Coarse) == 0 {
		return nil, integrityErrorf("no coarse centroids")
	}
	dim := len(a.Coarse[0].Vector)
	if dim == 0 {
		return nil, integrityErrorf("coarse centroid %q has an empty vector", a.Coarse[0].Label)
	}

	coarse := make([]Centroid, 0, len(a.Coarse))
	seen := make(map[emotion.Label]bool, len(a.Coarse))
	for _, c := range a.Coarse {
		if !c.Label.Valid() {
			return nil, integrityErrorf("coarse centroid has unknown label %q", c.Label)
		}
		if seen[c.Label] {
			return nil, integrityErrorf("duplicate coarse centroid for %q", c.Label)
		}
		if len(c.Vector) != dim {
			return nil, integrityErrorf("coarse centroid %q has dimension %d, want %d", c.Label, len(c.Vector), dim)
		}
		if !c.Vector.finite() {
			return nil, integrityErrorf("coarse centroid %q contains a non-finite value", c.Label)
		}
		seen[c.Label] = true
		coarse = append(coarse, Centroid{Label: c.Label, Vector: c.Vector.clone()})
	}
	sort.Slice(coarse, func(i, j int) bool {
		return emotion.Less(coarse[i].Label, coarse[j].Label)
	})

	fine := make([]FineCentroid, 0, len(a.Fine))
	fineKeys := make(map[string]bool, len(a.Fine))
	for _, f := range a.Fine {
		if f.Key == "" {
			return nil, integrityErrorf("fine centroid with empty key")
		}
		if fineKeys[f.Key] {
			return nil, integrityErrorf("duplicate fine centroid %q", f.Key)
		}
		if len(f.Vector) != dim {
			return nil, integrityErrorf("fine centroid %q has dimension %d, want %d", f.Key, len(f.Vector), dim)
		}
		if !f.Vector.finite() {
			return nil, integrityErrorf("fine centroid %q contains a non-finite value", f.Key)
		}
		fineKeys[f.Key] = true
		fine = append(fine, FineCentroid{Key: f.Key, Vector: f.Vector.clone()})
	}
	sort.Slice(fine, func(i, j int) bool { return fine[i].Key < fine[j].Key })

	if len(a.LeafVectors) != len(a.LeafMetadata) {
		return nil, integrityErrorf("leaf vectors (%d) and leaf metadata (%d) differ in length",
			len(a.LeafVectors), len(a.LeafMetadata))
	}

	leaves := make([]LeafRecord, len(a.LeafVectors))
	byLabel := make(map[emotion.Label][]LeafRecord, emotion.Count)
	for i, v := range a.LeafVectors {
		meta := a.LeafMetadata[i]
		if len(v) != dim {
			return nil, integrityErrorf("leaf %d has dimension %d, want %d", i, len(v), dim)
		}
		if !v.finite() {
			return nil, integrityErrorf("leaf %d contains a non-finite value", i)
		}
		if !meta.Label.Valid() {
			return nil, integrityErrorf("leaf %d has unknown label %q", i, meta.Label)
		}
		rec := LeafRecord{
			ID:        i,
			Text:      meta.Text,
			Label:     meta.Label,
			Situation: meta.Situation,
			Vector:    v.clone(),
		}
		leaves[i] = rec
		byLabel[rec.Label] = append(byLabel[rec.Label], rec)
	}

	return &EmbeddingIndex{
		dim:     dim,
		coarse:  coarse,
		fine:    fine,
		leaves:  leaves,
		byLabel: byLabel,
	}, nil
}

// Dimension is the vector length D shared by every vector in the index.
func (x *EmbeddingIndex) Dimension() int {
	return x.dim
}

// Coarse returns the coarse centroids in canonical label order.
func (x *EmbeddingIndex) Coarse() []Centroid {
	return x.coarse
}

// Fine returns the second-level centroids sorted by key.
func (x *EmbeddingIndex) Fine() []FineCentroid {
	return x.fine
}

// Leaves returns the whole leaf corpus ordered by id.
func (x *EmbeddingIndex) Leaves() []LeafRecord {
	return x.leaves
}

// LeavesByLabel returns the leaves carrying l, ordered by id.
func (x *EmbeddingIndex) LeavesByLabel(l emotion.Label) []LeafRecord {
	return x.byLabel[l]
}

// CheckQuery rejects vectors whose length differs from the index dimension
// and vectors holding NaN or Inf.
func (x *EmbeddingIndex) CheckQuery(q Vector) error {
	if len(q) != x.dim {
		return &DimensionMismatchError{Want: x.dim, Got: len(q)}
	}
	if !q.finite() {
		return ErrNonFiniteQuery
	}
	return nil
}

// Stats summarises the loaded index for startup logs and tooling.
type Stats struct {
	Dimension   int
	Coarse      int
	Fine        int
	Leaves      int
	LeafByLabel map[emotion.Label]int
}

func (x *EmbeddingIndex) Stats() Stats {
	s := Stats{
		Dimension:   x.dim,
		Coarse:      len(x.coarse),
		Fine:        len(x.fine),
		Leaves:      len(x.leaves),
		LeafByLabel: make(map[emotion.Label]int, len(x.byLabel)),
	}
	for l, recs := range x.byLabel {
		s.LeafByLabel[l] = len(recs)
	}
	return s
}
