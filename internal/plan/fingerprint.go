package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// Fingerprint computes a hash over every file in the plans directory, in
// sorted relative-path order. The result is a tree-version marker: two equal
// fingerprints mean the hierarchy on disk is unchanged, so callers may reuse
// a previously computed roll-up instead of walking the tree again. Returns
// an empty string when the directory does not exist.
func Fingerprint(dir string) (string, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("stat dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", dir)
	}

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, relPath)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk dir: %w", err)
	}

	sort.Strings(files)

	h := sha256.New()
	for _, relPath := range files {
		fullPath := filepath.Join(dir, relPath)
		f, err := os.Open(fullPath)
		if err != nil {
			return "", fmt.Errorf("open %s: %w", relPath, err)
		}

		fh := sha256.New()
		if _, err := io.Copy(fh, f); err != nil {
			_ = f.Close()
			return "", fmt.Errorf("hash %s: %w", relPath, err)
		}
		_ = f.Close()

		_, _ = h.Write([]byte(relPath))
		_, _ = h.Write(fh.Sum(nil))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
