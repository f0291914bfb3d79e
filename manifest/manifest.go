// Package manifest tracks what was generated for which table, so
// unchanged tables skip regeneration. Decisions key on structural
// pattern fingerprints; the stored timestamps are informational only.
//
// The manifest file carries no cross-process lock. Concurrent runs
// against one output directory must be serialized by the caller.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileName is the manifest location inside the output directory.
const FileName = ".zerogen.manifest.json"

// CurrentVersion is the manifest document version this build writes.
const CurrentVersion = 1

// Entry records the last generation of one table.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Files       []string  `json:"files"`
	GeneratedAt time.Time `json:"generated_at"`
}

type Manifest struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"tables"`
}

func New() *Manifest {
	return &Manifest{
		Version: CurrentVersion,
		Entries: map[string]Entry{},
	}
}

// PathIn returns the manifest path for an output directory.
func PathIn(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads a manifest. A missing file is a fresh start, not an error.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %v", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %v", path, err)
	}
	if m.Version > CurrentVersion {
		return nil, fmt.Errorf("manifest %s has version %d, this build reads up to %d", path, m.Version, CurrentVersion)
	}
	if m.Entries == nil {
		m.Entries = map[string]Entry{}
	}
	return &m, nil
}

// Save persists the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating manifest directory: %v", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing manifest: %v", err)
	}
	return nil
}

// ShouldRegenerate reports whether a table needs generating: unknown
// tables always do, known tables only when their fingerprint moved.
func (m *Manifest) ShouldRegenerate(table, fingerprint string) bool {
	e, ok := m.Entries[table]
	if !ok {
		return true
	}
	return e.Fingerprint != fingerprint
}

// Update records a completed generation.
func (m *Manifest) Update(table, fingerprint string, files []string) {
	m.Entries[table] = Entry{
		Fingerprint: fingerprint,
		Files:       files,
		GeneratedAt: time.Now().UTC(),
	}
}

// Remove forgets a table.
func (m *Manifest) Remove(table string) {
	delete(m.Entries, table)
}

// Entry returns the record for a table.
func (m *Manifest) Entry(table string) (Entry, bool) {
	e, ok := m.Entries[table]
	return e, ok
}

// TableNames lists recorded tables in name order.
func (m *Manifest) TableNames() []string {
	names := make([]string, 0, len(m.Entries))
	for name := range m.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileInfo describes one file found in the output directory.
type FileInfo struct {
	Name     string
	Size     int64
	Modified time.Time
}

// DetectExisting inventories the output directory: every regular file
// except the manifest itself, in name order. A missing directory is an
// empty inventory.
func DetectExisting(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %v", err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == FileName {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %v", entry.Name(), err)
		}
		files = append(files, FileInfo{
			Name:     entry.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
