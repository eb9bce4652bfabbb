// Package filesystem reads forecast files from the drop folder and writes
// synthetic ones into it.
package filesystem

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// maxLineBytes bounds a single forecast line; ConWx rows for long runs are wide.
const maxLineBytes = 4 << 20

// Folder is a drop folder of forecast files.
// It implements pipeline.Source.
type Folder struct {
	path       string
	filter     *regexp.Regexp
	quarantine string
	logger     *slog.Logger
}

// NewFolder creates a Folder listing files in path whose names match filter.
// Files that fail to decode are moved to quarantine, or removed when
// quarantine is empty.
func NewFolder(path string, filter *regexp.Regexp, quarantine string, logger *slog.Logger) *Folder {
	return &Folder{path: path, filter: filter, quarantine: quarantine, logger: logger}
}

// List returns the full paths of matching files, oldest modification first.
// Non-matching files are logged and left alone. Hidden files are in-progress
// writes and are skipped silently.
func (f *Folder) List() ([]string, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.path, err)
	}

	type file struct {
		path    string
		modTime time.Time
	}
	var files []file
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !f.filter.MatchString(e.Name()) {
			f.logger.Warn("unknown file in forecast folder", "file", e.Name())
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, file{path: filepath.Join(f.path, e.Name()), modTime: info.ModTime()})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	paths := make([]string, len(files))
	for i, fl := range files {
		paths[i] = fl.path
	}
	return paths, nil
}

// ReadLines returns the file content split into lines without terminators.
func (f *Folder) ReadLines(path string) ([]string, error) {
	return ReadLines(path)
}

// Done disposes of a processed file. Failed files go to the quarantine folder
// when one is configured.
func (f *Folder) Done(path string, failed bool) error {
	if failed && f.quarantine != "" {
		dst := filepath.Join(f.quarantine, filepath.Base(path))
		if err := os.Rename(path, dst); err != nil {
			return fmt.Errorf("quarantine %s: %w", path, err)
		}
		f.logger.Info("file quarantined", "file", filepath.Base(path), "quarantine", f.quarantine)
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// ReadLines reads a text file into lines.
func ReadLines(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()

	var lines []string
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

// WriteLines writes lines joined by newlines to dir/name. The content is
// written to a hidden temporary file first and renamed into place, so a
// concurrent folder scan never sees a partial file.
func WriteLines(dir, name string, lines []string) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(strings.Join(lines, "\n")); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
