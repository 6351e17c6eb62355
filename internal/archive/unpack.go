package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrCorruptArchive marks a container that is not a valid zip file. The
// period is skipped; other periods are unaffected.
var ErrCorruptArchive = errors.New("corrupt archive")

// Unpack extracts a yearly zip archive into a sibling directory named after
// the archive stem and returns the extraction directory.
func Unpack(zipPath string) (string, error) {
	stem := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	destDir := filepath.Join(filepath.Dir(zipPath), stem)

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return "", fmt.Errorf("%w: %s", ErrCorruptArchive, zipPath)
		}
		return "", fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create extraction dir: %w", err)
	}

	for _, file := range r.File {
		if err := extractFile(file, destDir); err != nil {
			return "", fmt.Errorf("extract %s: %w", file.Name, err)
		}
	}
	return destDir, nil
}

func extractFile(file *zip.File, destDir string) error {
	// Reject entries that would escape the extraction directory.
	target := filepath.Join(destDir, filepath.Clean(file.Name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal path %q", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	in, err := file.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// ListCSVs returns every .csv file (case-insensitive) under dir, recursively.
func ListCSVs(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list csv files in %s: %w", dir, err)
	}
	return files, nil
}
