// Package model holds the regression used by the trained prediction engine
// and the versioned on-disk store for its artifacts.
//
// Artifacts are written as {name}_{version}.gob.gz: a gob envelope carrying
// metadata and the gzip-compressed gob encoding of the model. The SHA-256 of
// the uncompressed payload is recorded on save and verified on load.
package model

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ArtifactName prefixes every artifact file
const ArtifactName = "feasibility"

var versionPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Metadata describes a stored model
type Metadata struct {
	Version    string    `json:"version"`
	Features   []string  `json:"features"`
	Targets    []string  `json:"targets"`
	RowCount   int       `json:"row_count"`
	Lambda     float64   `json:"lambda"`
	TrainedAt  time.Time `json:"trained_at"`
	SavedAt    time.Time `json:"saved_at"`
	Checksum   string    `json:"checksum"`
	SizeBytes  int64     `json:"size_bytes"`
	DurationMS int64     `json:"training_duration_ms"`
}

type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store reads and writes model artifacts under one directory
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir. The directory is created on first save.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Path returns the artifact file for a version
func (s *Store) Path(version string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_%s.gob.gz", ArtifactName, version))
}

// Save writes the model under version, replacing any previous artifact with that version
func (s *Store) Save(ctx context.Context, version string, m *Linear, meta Metadata) (*Metadata, error) {
	if !versionPattern.MatchString(version) {
		return nil, fmt.Errorf("invalid model version %q", version)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(m); err != nil {
		return nil, fmt.Errorf("encode model: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	meta.Version = version
	meta.Features = append([]string(nil), m.Features...)
	meta.Targets = append([]string(nil), m.Targets...)
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	// write to a temp file and rename so readers never see a partial artifact
	tmp, err := os.CreateTemp(s.baseDir, ArtifactName+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(version)); err != nil {
		return nil, fmt.Errorf("publish model file: %w", err)
	}

	return &meta, nil
}

// Load reads and verifies the artifact for version
func (s *Store) Load(ctx context.Context, version string) (*Linear, *Metadata, error) {
	if !versionPattern.MatchString(version) {
		return nil, nil, fmt.Errorf("invalid model version %q", version)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.Path(version))
	if err != nil {
		return nil, nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("read model file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress model: %w", err)
	}
	defer gzr.Close()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	var m Linear
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, nil, err
	}

	return &m, &sf.Metadata, nil
}
