// Package playlist implements the M3U(8) surface of the pipeline: parsing
// user-supplied playlists into audio file lists, enumerating a root folder
// by the supported-extension set, and writing the per-run result playlists
// the Auto-Tagger Scheduler emits.
package playlist

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/onetagger/autotagger-core/internal/constants"
	"github.com/onetagger/autotagger-core/internal/model"
)

// Parse reads an M3U(8) file: line endings are normalized to \n, blank
// lines and lines starting with "#" or "http://" are dropped, and the
// remaining entries are resolved against basePath (absolute entries are
// kept as-is) and filtered to the supported audio-extension set.
func Parse(path, basePath string) ([]string, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // playlist path is operator-supplied.
	if err != nil {
		return nil, fmt.Errorf("playlist: %w", err)
	}

	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	for strings.Contains(content, "\n\n") {
		content = strings.ReplaceAll(content, "\n\n", "\n")
	}

	var entries []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "http://") {
			continue
		}

		if _, ok := model.FormatFromExtension(filepath.Ext(line)); !ok {
			continue
		}

		if !filepath.IsAbs(line) && basePath != "" {
			line = filepath.Join(basePath, line)
		}

		entries = append(entries, line)
	}

	return entries, nil
}

// EnumerateRoot walks root and returns every file whose extension is in the
// supported set. When recursive is false, subdirectories are skipped.
func EnumerateRoot(root string, recursive bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}

			return nil
		}

		if _, ok := model.FormatFromExtension(filepath.Ext(path)); ok {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("playlist: enumerating %s: %w", root, err)
	}

	return files, nil
}

// Write renders entries as an M3U playlist at path, creating parent
// directories as needed. Entries are written in the order given.
func Write(path string, entries []string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultFolderPermissions); err != nil {
		return fmt.Errorf("playlist: %w", err)
	}

	var b strings.Builder

	b.WriteString("#EXTM3U\n")

	for _, entry := range entries {
		b.WriteString(entry)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), constants.DefaultFilePermissions); err != nil {
		return fmt.Errorf("playlist: %w", err)
	}

	return nil
}
