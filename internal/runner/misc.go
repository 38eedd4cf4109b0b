package runner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/worldtext/internal/extract"
	"github.com/roach88/worldtext/internal/fsutil"
	"github.com/roach88/worldtext/internal/nbt"
	"github.com/roach88/worldtext/internal/world"
)

// miscFiles processes the save-level files after the records.
func (s *session) miscFiles(w *world.World) error {
	if s.interrupted() {
		return nil
	}
	s.document(w, world.ScoreboardFile, s.ec.Scoreboard)
	s.document(w, world.LevelFile, s.ec.Level)

	for _, dir := range []string{world.DatapacksDir, world.GeneratedDir} {
		if err := s.walkTree(w.Path(dir), false); err != nil {
			return err
		}
	}
	return nil
}

// document rewrites one standalone NBT file. Missing and unreadable files
// are logged and skipped.
func (s *session) document(w *world.World, rel string, rewrite func(*nbt.Compound) bool) {
	if s.interrupted() {
		return
	}
	doc, err := w.ReadDocument(rel)
	if world.IsMissing(err) {
		s.log.Debug("no such file", "file", rel)
		return
	}
	if err != nil {
		s.log.Error("skipping unreadable file", "file", rel, "error", err)
		s.res.Skipped++
		return
	}
	if !rewrite(doc.File.Root) {
		return
	}
	if err := doc.Save(); err != nil {
		s.log.Error("failed to save file", "file", rel, "error", err)
		return
	}
	s.res.Files++
}

// walkTree rewrites every data-pack text file and structure template below
// dir in lexical order. A missing dir is skipped unless required.
func (s *session) walkTree(dir string, required bool) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		if required {
			return fmt.Errorf("data pack directory %s: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	s.log.Info("scanning data files", "dir", dir)
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Error("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if s.interrupted() {
			return filepath.SkipAll
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch {
		case strings.HasSuffix(rel, ".zip"):
			s.log.Warn("zipped data pack skipped, extract it first", "file", rel)
		case strings.HasSuffix(rel, ".nbt"):
			s.structure(path, rel)
		case extract.IsDataFile(rel):
			s.dataFile(path, rel)
		}
		return nil
	})
}

// structure rewrites a structure template file.
func (s *session) structure(path, rel string) {
	f, err := nbt.ReadFile(path)
	if err != nil {
		s.log.Error("skipping unreadable structure", "file", rel, "error", err)
		s.res.Skipped++
		return
	}
	if !s.ec.Structure(f.Root) {
		return
	}
	if err := f.Save(path); err != nil {
		s.log.Error("failed to save structure", "file", rel, "error", err)
		return
	}
	s.res.Files++
}

// dataFile rewrites a function or JSON file.
func (s *session) dataFile(path, rel string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Error("skipping unreadable data file", "file", rel, "error", err)
		s.res.Skipped++
		return
	}
	out, n := s.ec.DataFile(extract.DataFileScope(rel), string(data))
	if n == 0 {
		return
	}
	if err := fsutil.WriteFileAtomic(path, []byte(out)); err != nil {
		s.log.Error("failed to save data file", "file", rel, "error", err)
		return
	}
	s.log.Debug("data file rewritten", "file", rel, "fragments", n)
	s.res.Files++
}
