package warehouse

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/bloom"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// Manifest is the .meta.json sidecar written after every load.
type Manifest struct {
	Database      string                   `json:"database"`
	SchemaVersion int                      `json:"schema_version"`
	SizeBytes     int64                    `json:"size_bytes"`
	Tables        map[string]TableStats    `json:"tables"`
	BloomFilters  map[string]bloom.Encoded `json:"bloom_filters"`
	CreatedAt     int64                    `json:"created_at"`
}

// TableStats holds table-level statistics.
type TableStats struct {
	RowCount   int64   `json:"row_count"`
	TimeColumn string  `json:"time_column"`
	MinTime    *string `json:"min_time,omitempty"`
	MaxTime    *string `json:"max_time,omitempty"`
	MinUserID  *int64  `json:"min_user_id,omitempty"`
	MaxUserID  *int64  `json:"max_user_id,omitempty"`
}

func newManifest(dbPath string) *Manifest {
	return &Manifest{
		Database:      filepath.Base(dbPath),
		SchemaVersion: types.EventsSchema().Version,
		Tables:        make(map[string]TableStats),
		BloomFilters:  make(map[string]bloom.Encoded),
		CreatedAt:     time.Now().Unix(),
	}
}

// ManifestPath returns the sidecar path for a database path.
func ManifestPath(dbPath string) string {
	dir := filepath.Dir(dbPath)
	base := filepath.Base(dbPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, name+".meta.json")
}

// WriteToFile writes the manifest as indented JSON.
func (m *Manifest) WriteToFile(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest: failed to marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("manifest: failed to write %s: %w", path, err)
	}
	return nil
}

// ReadManifest reads a sidecar written by Load.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: failed to read %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: failed to unmarshal: %w", err)
	}
	return &m, nil
}

// MayContainUser reports whether events_raw might hold rows for userID.
// It answers true without a filter, so callers must still query.
func (m *Manifest) MayContainUser(userID int64) (bool, error) {
	if st, ok := m.Tables["events_raw"]; ok && st.MinUserID != nil && st.MaxUserID != nil {
		if userID < *st.MinUserID || userID > *st.MaxUserID {
			return false, nil
		}
	}
	enc, ok := m.BloomFilters["events_raw.user_id"]
	if !ok {
		return true, nil
	}
	f, err := bloom.Decode(enc)
	if err != nil {
		return true, err
	}
	return f.HasID(userID), nil
}

// CreatedAtTime returns the creation time.
func (m *Manifest) CreatedAtTime() time.Time {
	return time.Unix(m.CreatedAt, 0)
}
