package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagebridge/pagebridge/internal/errkind"
)

// maxManifestEntries caps directory enumeration to guard against runaway
// scans of enormous or cyclic-symlinked trees.
const maxManifestEntries = 1_000_000

// FileEntry is one local file scheduled for upload.
type FileEntry struct {
	LocalPath string
	RemoteKey string
	Size      int64
}

// IsZipPath reports whether path names a zip archive, by case-insensitive
// extension.
func IsZipPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".zip")
}

// ValidateArtifact checks that path exists and is either a directory or a
// zip archive, returning its FileInfo.
func ValidateArtifact(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errkind.New(errkind.Validation, "path does not exist: %s", path)
	}

	if !info.IsDir() && !IsZipPath(path) {
		return nil, errkind.New(errkind.Validation, "must be a folder or zip file: %s", path)
	}

	return info, nil
}

// ZipKey returns the remote object key for an archive upload.
func ZipKey(path, prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + filepath.Base(path)
}

// BuildManifest enumerates every regular file under root, depth first and
// unbounded in depth, and derives each remote key as {prefix}/{posix relative
// path}. Directory entries and paths that normalize to an empty or root key
// are excluded.
func BuildManifest(root, prefix string) ([]FileEntry, error) {
	return buildManifest(root, prefix, maxManifestEntries)
}

func buildManifest(root, prefix string, limit int) ([]FileEntry, error) {
	prefix = strings.TrimSuffix(prefix, "/")

	var entries []FileEntry
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		count++
		if count > limit {
			return errkind.New(errkind.ResourceLimit, "too many files under %s: limit is %d entries", root, limit)
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "" || rel == "." || rel == "/" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entries = append(entries, FileEntry{
			LocalPath: path,
			RemoteKey: prefix + "/" + rel,
			Size:      info.Size(),
		})
		return nil
	})
	if err != nil {
		if errkind.KindOf(err) != "" {
			return nil, err
		}
		return nil, errkind.Wrap(errkind.Validation, err, "failed to scan %s", root)
	}

	return entries, nil
}
