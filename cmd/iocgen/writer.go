package main

import (
	"bufio"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// tempFile abstracts an os.File for testability.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// writeStats counts the outcome of writeArtifacts.
type writeStats struct {
	Written   int
	Unchanged int
	Failed    int
	Removed   int
}

// writeArtifacts writes files into dir. A file whose content is unchanged is
// not touched. A failed write is logged and the remaining files are still
// written. Generated files left over from earlier runs are removed.
func writeArtifacts(dir string, files []Artifact, log *zap.Logger) writeStats {
	var st writeStats

	if len(files) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Error("create output directory failed", zap.String("dir", dir), zap.Error(err))
			st.Failed = len(files)
			return st
		}
	}

	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f.Name] = true
		target := filepath.Join(dir, f.Name)

		if old, err := os.ReadFile(target); err == nil && bytes.Equal(old, f.Content) {
			log.Debug("unchanged", zap.String("file", target))
			st.Unchanged++
			continue
		}
		if err := writeFileAtomic(target, f.Content, 0o644); err != nil {
			log.Error("write failed", zap.String("file", target), zap.Error(err))
			st.Failed++
			continue
		}
		log.Debug("written", zap.String("file", target))
		st.Written++
	}

	st.Removed = removeStale(dir, keep, log)
	return st
}

// removeStale deletes generated files in dir that are not in keep.
func removeStale(dir string, keep map[string]bool, log *zap.Logger) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("list output directory failed", zap.String("dir", dir), zap.Error(err))
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || keep[name] || !strings.HasSuffix(name, ".gen.go") {
			continue
		}
		target := filepath.Join(dir, name)
		if !isGenerated(target) {
			continue
		}
		if err := removeFile(target); err != nil {
			log.Warn("remove stale file failed", zap.String("file", target), zap.Error(err))
			continue
		}
		log.Info("removed stale file", zap.String("file", target))
		removed++
	}
	return removed
}

// isGenerated reports whether the file starts with the iocgen header.
func isGenerated(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	return sc.Scan() && sc.Text() == generatedHeader
}

// writeFileAtomic writes a file atomically.
//
// It writes to a temporary file in the same directory and then renames it
// over the target path, ensuring readers never observe partial writes.
func writeFileAtomic(targetPath string, data []byte, perm os.FileMode) (err error) {
	targetDir := filepath.Dir(targetPath)

	tmpFile, err := createTempFile(targetDir, filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			_ = removeFile(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = chmodFile(tmpPath, perm); err != nil {
		return err
	}
	return renameFile(tmpPath, targetPath)
}
