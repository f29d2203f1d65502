// Package retrieval classifies query vectors against the coarse emotion
// centroids and looks up similar historical examples in the leaf corpus.
//
// Both operations are linear scans over an immutable EmbeddingIndex: the
// classifier is O(#coarse centroids) and the lookup is O(#leaves in the
// pool). There is no ANN structure; this is the scaling limit of the engine
// at the corpus sizes it serves, not an oversight.
package retrieval

import (
	"errors"
	"fmt"
	"sort"

	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/index"

	"go.uber.org/zap"
)

// ErrInvalidK is returned when FindSimilar is asked for fewer than one result.
var ErrInvalidK = errors.New("k must be a positive integer")

// DefaultK is the number of similar examples the chat pipeline asks for.
const DefaultK = 3

// Retriever is a stateless query engine over an EmbeddingIndex. It is safe
// for concurrent use.
type Retriever struct {
	idx    *index.EmbeddingIndex
	logger *zap.Logger
}

func NewRetriever(idx *index.EmbeddingIndex, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{idx: idx, logger: logger}
}

// Index exposes the underlying index, mainly for the fine centroid level.
func (r *Retriever) Index() *index.EmbeddingIndex {
	return r.idx
}

// FineCentroids returns the second-level centroids. They are an extension
// point only: classification never consults them.
func (r *Retriever) FineCentroids() []index.FineCentroid {
	return r.idx.Fine()
}

// DetectEmotion returns the coarse label whose centroid is most similar to
// query, together with the raw cosine similarity.
//
// The returned confidence is NOT a calibrated probability. It is the cosine
// similarity in [-1, 1]; scaling it by 100 for display is fine, reading it
// as a statistical confidence is not.
//
// Centroids are scanned in canonical label order and only a strictly greater
// similarity replaces the current best, so exact ties resolve to the label
// that comes first canonically.
func (r *Retriever) DetectEmotion(query index.Vector) (emotion.Label, float64, error) {
	if err := r.idx.CheckQuery(query); err != nil {
		return "", 0, err
	}

	var (
		best     emotion.Label
		bestSim  float64
		assigned bool
	)
	for _, c := range r.idx.Coarse() {
		sim := index.Cosine(query, c.Vector)
		if !assigned || sim > bestSim {
			best, bestSim, assigned = c.Label, sim, true
		}
	}
	return best, bestSim, nil
}

// Match is a scored leaf returned by Rank.
type Match struct {
	ID         int
	Text       string
	Label      emotion.Label
	Similarity float64
}

// FindSimilar returns the texts of up to k leaves most similar to query
// among the leaves labelled label. When no leaf carries label the whole
// corpus is searched instead, so a non-empty corpus never yields an empty
// result.
func (r *Retriever) FindSimilar(query index.Vector, label emotion.Label, k int) ([]string, error) {
	matches, err := r.Rank(query, label, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return texts, nil
}

// Rank is FindSimilar with scores attached. Results are ordered by descending
// similarity, ties by ascending leaf id.
func (r *Retriever) Rank(query index.Vector, label emotion.Label, k int) ([]Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if err := r.idx.CheckQuery(query); err != nil {
		return nil, err
	}

	pool := r.idx.LeavesByLabel(label)
	if len(pool) == 0 {
		pool = r.idx.Leaves()
		r.logger.Debug("no leaves for label, searching whole corpus",
			zap.String("label", label.String()),
			zap.Int("corpus", len(pool)),
		)
	}

	scored := make([]Match, len(pool))
	for i, leaf := range pool {
		scored[i] = Match{
			ID:         leaf.ID,
			Text:       leaf.Text,
			Label:      leaf.Label,
			Similarity: index.Cosine(query, leaf.Vector),
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
