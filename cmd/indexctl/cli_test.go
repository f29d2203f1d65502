package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIndex(t *testing.T) string {
	t.Helper()
	var coarse []index.Centroid
	for i, l := range emotion.All() {
		v := make(index.Vector, emotion.Count)
		v[i] = 1
		coarse = append(coarse, index.Centroid{Label: l, Vector: v})
	}
	dir := t.TempDir()
	require.NoError(t, index.WriteArtifacts(dir, index.Artifacts{
		Coarse:       coarse,
		LeafVectors:  []index.Vector{coarse[0].Vector, coarse[2].Vector},
		LeafMetadata: []index.LeafMetadata{{Text: "좋아", Label: emotion.Joy}, {Text: "짜증나", Label: emotion.Anger}},
	}))
	return dir
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestValidateAndStats(t *testing.T) {
	dir := writeIndex(t)

	assert.NoError(t, run(t, "validate", "--dir", dir))
	assert.NoError(t, run(t, "stats", "--dir", dir))

	err := run(t, "validate", "--dir", t.TempDir())
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	dir := writeIndex(t)
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": []float64{0, 0, 1, 0, 0, 0}})
	}))
	defer ollama.Close()

	assert.NoError(t, run(t, "classify", "--dir", dir, "--ollama-url", ollama.URL, "-k", "1", "동생이", "짜증나게", "해"))
}

func TestImportRequiresValidArtifacts(t *testing.T) {
	err := run(t, "import", "--dir", t.TempDir(), "--dsn", "postgres://unused")
	assert.Error(t, err)
}
