package index

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"emotion-diary-be/pkg/emotion"
)

// File names inside an index directory.
const (
	CoarseCentroidsFile = "coarse_centroids.json"
	FineCentroidsFile   = "fine_centroids.json"
	LeafVectorsFile     = "leaf_vectors.json"
	LeafMetadataFile    = "leaf_metadata.csv"
)

// Metadata CSV columns.
const (
	columnText      = "text"
	columnLabel     = "emotion_major"
	columnSituation = "situation"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadArtifacts reads the index artifacts stored in dir. The fine centroid
// table is optional; everything else is required.
func ReadArtifacts(dir string) (Artifacts, error) {
	var a Artifacts

	coarse, err := readCentroidTable(filepath.Join(dir, CoarseCentroidsFile))
	if err != nil {
		return a, err
	}
	for key, vec := range coarse {
		label, err := emotion.Parse(key)
		if err != nil {
			return a, integrityErrorf("coarse centroid key %q: %v", key, err)
		}
		a.Coarse = append(a.Coarse, Centroid{Label: label, Vector: vec})
	}

	fine, err := readCentroidTable(filepath.Join(dir, FineCentroidsFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return a, err
	default:
		for key, vec := range fine {
			a.Fine = append(a.Fine, FineCentroid{Key: key, Vector: vec})
		}
	}

	if a.LeafVectors, err = readLeafVectors(filepath.Join(dir, LeafVectorsFile)); err != nil {
		return a, err
	}
	if a.LeafMetadata, err = readLeafMetadata(filepath.Join(dir, LeafMetadataFile)); err != nil {
		return a, err
	}
	return a, nil
}

// LoadFiles reads the artifacts in dir and builds an index from them.
func LoadFiles(dir string) (*EmbeddingIndex, error) {
	a, err := ReadArtifacts(dir)
	if err != nil {
		return nil, err
	}
	return Load(a)
}

// WriteArtifacts stores a in dir using the same layout ReadArtifacts expects.
func WriteArtifacts(dir string, a Artifacts) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	coarse := make(map[string]Vector, len(a.Coarse))
	for _, c := range a.Coarse {
		coarse[emotion.ArtifactPrefix+string(c.Label)] = c.Vector
	}
	if err := writeJSON(filepath.Join(dir, CoarseCentroidsFile), coarse); err != nil {
		return err
	}

	if len(a.Fine) > 0 {
		fine := make(map[string]Vector, len(a.Fine))
		for _, f := range a.Fine {
			fine[f.Key] = f.Vector
		}
		if err := writeJSON(filepath.Join(dir, FineCentroidsFile), fine); err != nil {
			return err
		}
	}

	if err := writeJSON(filepath.Join(dir, LeafVectorsFile), a.LeafVectors); err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{columnText, columnLabel, columnSituation}); err != nil {
		return err
	}
	for _, m := range a.LeafMetadata {
		if err := w.Write([]string{m.Text, string(m.Label), m.Situation}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, LeafMetadataFile), buf.Bytes(), 0644)
}

func readCentroidTable(path string) (map[string]Vector, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var table map[string]Vector
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, integrityErrorf("decode %s: %v", filepath.Base(path), err)
	}
	return table, nil
}

func readLeafVectors(path string) ([]Vector, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var vectors []Vector
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, integrityErrorf("decode %s: %v", filepath.Base(path), err)
	}
	return vectors, nil
}

func readLeafMetadata(path string) ([]LeafMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, integrityErrorf("%s has no header: %v", LeafMetadataFile, err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	textIdx, ok := col[columnText]
	if !ok {
		return nil, integrityErrorf("%s is missing column %q", LeafMetadataFile, columnText)
	}
	labelIdx, ok := col[columnLabel]
	if !ok {
		return nil, integrityErrorf("%s is missing column %q", LeafMetadataFile, columnLabel)
	}
	situationIdx, hasSituation := col[columnSituation]

	var rows []LeafMetadata
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, integrityErrorf("%s line %d: %v", LeafMetadataFile, line, err)
		}
		if textIdx >= len(rec) || labelIdx >= len(rec) {
			return nil, integrityErrorf("%s line %d: too few fields", LeafMetadataFile, line)
		}
		label, err := emotion.Parse(rec[labelIdx])
		if err != nil {
			return nil, integrityErrorf("%s line %d: %v", LeafMetadataFile, line, err)
		}
		m := LeafMetadata{Text: rec[textIdx], Label: label}
		if hasSituation && situationIdx < len(rec) {
			m.Situation = rec[situationIdx]
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
