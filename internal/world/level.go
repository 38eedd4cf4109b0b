package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/worldtext/internal/nbt"
)

// LegacySpawnerVersion is the first data version (21w37a, 1.18) that stores
// spawner entities under SpawnData.entity.
const LegacySpawnerVersion = 2826

// Paths of the save-level files.
const (
	LevelFile      = "level.dat"
	ScoreboardFile = "data/scoreboard.dat"
	DatapacksDir   = "datapacks"
	GeneratedDir   = "generated"
)

// LevelData is the part of level.dat the extractor cares about.
type LevelData struct {
	Name        string
	DataVersion int64
}

// LegacySpawners reports whether the save predates the 1.18 spawner layout.
func (l LevelData) LegacySpawners() bool {
	return l.DataVersion > 0 && l.DataVersion < LegacySpawnerVersion
}

// Path returns the absolute path of a save-level file or directory.
func (w *World) Path(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// LevelData reads the summary fields of level.dat.
func (w *World) LevelData() (LevelData, error) {
	f, err := nbt.ReadFile(w.Path(LevelFile))
	if err != nil {
		return LevelData{}, fmt.Errorf("read %s: %w", LevelFile, err)
	}
	data, ok := f.Root.Compound("Data")
	if !ok {
		return LevelData{}, fmt.Errorf("%s: no Data compound", LevelFile)
	}
	var ld LevelData
	ld.Name, _ = data.String("LevelName")
	ld.DataVersion, _ = data.Int("DataVersion")
	return ld, nil
}

// Document is a standalone NBT file of the save such as level.dat or
// scoreboard.dat.
type Document struct {
	Path string
	File *nbt.File
}

// ReadDocument loads the NBT file at rel. A missing file returns
// os.ErrNotExist wrapped.
func (w *World) ReadDocument(rel string) (*Document, error) {
	path := w.Path(rel)
	f, err := nbt.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rel, err)
	}
	return &Document{Path: path, File: f}, nil
}

// Save writes the document back with its original compression.
func (d *Document) Save() error {
	return d.File.Save(d.Path)
}

// IsMissing reports whether err is a missing-file error.
func IsMissing(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
