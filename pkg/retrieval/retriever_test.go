package retrieval

import (
	"math"
	"math/rand"
	"testing"

	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sixLabelIndex(t *testing.T, leaves []index.LeafMetadata, vectors []index.Vector) *index.EmbeddingIndex {
	t.Helper()
	var coarse []index.Centroid
	for i, l := range emotion.All() {
		v := make(index.Vector, emotion.Count)
		v[i] = 1
		coarse = append(coarse, index.Centroid{Label: l, Vector: v})
	}
	idx, err := index.Load(index.Artifacts{
		Coarse:       coarse,
		Fine:         []index.FineCentroid{{Key: "상처_가족", Vector: make(index.Vector, emotion.Count)}},
		LeafVectors:  vectors,
		LeafMetadata: leaves,
	})
	require.NoError(t, err)
	return idx
}

func unit(i int) index.Vector {
	v := make(index.Vector, emotion.Count)
	v[i] = 1
	return v
}

func TestDetectEmotionPicksNearestCentroid(t *testing.T) {
	r := NewRetriever(sixLabelIndex(t, nil, nil), nil)

	for i, want := range emotion.All() {
		label, conf, err := r.DetectEmotion(unit(i))
		require.NoError(t, err)
		assert.Equal(t, want, label)
		assert.InDelta(t, 1.0, conf, 1e-9)
	}
}

func TestDetectEmotionTieBreaksCanonically(t *testing.T) {
	r := NewRetriever(sixLabelIndex(t, nil, nil), nil)

	// equidistant from anger and hurt
	q := index.Vector{0, 0, 1, 0, 0, 1}
	label, _, err := r.DetectEmotion(q)
	require.NoError(t, err)
	assert.Equal(t, emotion.Anger, label)

	// equidistant from every centroid
	label, _, err = r.DetectEmotion(index.Vector{1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, emotion.Joy, label)

	// zero vector scores 0 everywhere
	label, conf, err := r.DetectEmotion(make(index.Vector, emotion.Count))
	require.NoError(t, err)
	assert.Equal(t, emotion.Joy, label)
	assert.Equal(t, 0.0, conf)
}

func TestDetectEmotionDeterministicAndBounded(t *testing.T) {
	r := NewRetriever(sixLabelIndex(t, nil, nil), nil)
	rng := rand.New(rand.NewSource(7))

	for n := 0; n < 200; n++ {
		q := make(index.Vector, emotion.Count)
		for i := range q {
			q[i] = float32(rng.NormFloat64())
		}
		label, conf, err := r.DetectEmotion(q)
		require.NoError(t, err)
		assert.True(t, label.Valid())
		assert.GreaterOrEqual(t, conf, -1.0)
		assert.LessOrEqual(t, conf, 1.0)

		again, conf2, err := r.DetectEmotion(q)
		require.NoError(t, err)
		assert.Equal(t, label, again)
		assert.Equal(t, conf, conf2)
	}
}

func TestDetectEmotionIgnoresFineCentroids(t *testing.T) {
	idx := sixLabelIndex(t, nil, nil)
	r := NewRetriever(idx, nil)
	require.Len(t, r.FineCentroids(), 1)

	label, _, err := r.DetectEmotion(unit(1))
	require.NoError(t, err)
	assert.Equal(t, emotion.Sadness, label)
}

func TestDimensionMismatch(t *testing.T) {
	r := NewRetriever(sixLabelIndex(t, nil, nil), nil)

	_, _, err := r.DetectEmotion(index.Vector{1, 0})
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)

	_, err = r.FindSimilar(index.Vector{1, 0, 0, 0, 0, 0, 0}, emotion.Joy, 3)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)
}

func TestNonFiniteQueryRejected(t *testing.T) {
	meta, vectors := corpus()
	r := NewRetriever(sixLabelIndex(t, meta, vectors), nil)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		q := index.Vector{float32(bad), 1, 0, 0, 0, 0}

		label, conf, err := r.DetectEmotion(q)
		assert.ErrorIs(t, err, index.ErrNonFiniteQuery)
		assert.Empty(t, label)
		assert.Zero(t, conf)

		similar, err := r.FindSimilar(q, emotion.Joy, 3)
		assert.ErrorIs(t, err, index.ErrNonFiniteQuery)
		assert.Nil(t, similar)
	}
}

func corpus() ([]index.LeafMetadata, []index.Vector) {
	meta := []index.LeafMetadata{
		{Text: "joy-far", Label: emotion.Joy},
		{Text: "sad-near", Label: emotion.Sadness},
		{Text: "joy-near", Label: emotion.Joy},
		{Text: "joy-tie-a", Label: emotion.Joy},
		{Text: "joy-tie-b", Label: emotion.Joy},
	}
	vectors := []index.Vector{
		{0, 1, 0, 0, 0, 0},
		{1, 0, 0, 0, 0, 0},
		{1, 0.1, 0, 0, 0, 0},
		{1, 0.5, 0, 0, 0, 0},
		{1, 0.5, 0, 0, 0, 0},
	}
	return meta, vectors
}

func TestFindSimilarFiltersByLabelAndOrders(t *testing.T) {
	meta, vectors := corpus()
	r := NewRetriever(sixLabelIndex(t, meta, vectors), nil)

	got, err := r.FindSimilar(unit(0), emotion.Joy, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"joy-near", "joy-tie-a", "joy-tie-b", "joy-far"}, got)

	top2, err := r.FindSimilar(unit(0), emotion.Joy, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"joy-near", "joy-tie-a"}, top2)
}

func TestFindSimilarFallsBackToWholeCorpus(t *testing.T) {
	meta, vectors := corpus()
	r := NewRetriever(sixLabelIndex(t, meta, vectors), nil)

	got, err := r.FindSimilar(unit(0), emotion.Anger, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"sad-near", "joy-near"}, got)
}

func TestFindSimilarNeverExceedsK(t *testing.T) {
	meta, vectors := corpus()
	r := NewRetriever(sixLabelIndex(t, meta, vectors), nil)

	for k := 1; k <= 7; k++ {
		for _, l := range emotion.All() {
			got, err := r.FindSimilar(unit(2), l, k)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), k)
			assert.NotEmpty(t, got)
		}
	}
}

func TestFindSimilarEmptyCorpus(t *testing.T) {
	r := NewRetriever(sixLabelIndex(t, nil, nil), nil)

	got, err := r.FindSimilar(unit(0), emotion.Joy, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindSimilarRejectsNonPositiveK(t *testing.T) {
	meta, vectors := corpus()
	r := NewRetriever(sixLabelIndex(t, meta, vectors), nil)

	_, err := r.FindSimilar(unit(0), emotion.Joy, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestRankCarriesScores(t *testing.T) {
	meta, vectors := corpus()
	r := NewRetriever(sixLabelIndex(t, meta, vectors), nil)

	matches, err := r.Rank(unit(0), emotion.Sadness, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
}
