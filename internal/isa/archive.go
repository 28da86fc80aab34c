package isa

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	simple_util "github.com/liserjrqlxue/simple-util"
)

// ExtractArchive unpacks an ISA zip into a fresh temp directory and returns
// the extracted file paths.
func ExtractArchive(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open ISA archive %s: %w", archivePath, err)
	}
	defer simple_util.DeferClose(r)

	tempDir, err := os.MkdirTemp("", "isa-archive-")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, zf := range r.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		dest := filepath.Join(tempDir, filepath.FromSlash(zf.Name))
		if !strings.HasPrefix(dest, tempDir+string(os.PathSeparator)) {
			return nil, fmt.Errorf("archive entry escapes extraction dir: %s", zf.Name)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, err
		}
		if err := extractOne(zf, dest); err != nil {
			return nil, err
		}
		files = append(files, dest)
	}
	return files, nil
}

func extractOne(zf *zip.File, dest string) error {
	src, err := zf.Open()
	if err != nil {
		return err
	}
	defer simple_util.DeferClose(src)

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer simple_util.DeferClose(out)

	_, err = io.Copy(out, src)
	return err
}

// FindFileWithPrefix locates exactly one file whose base name starts with
// prefix, e.g. the single "i_" investigation file or "s_" study table.
func FindFileWithPrefix(files []string, prefix string) (string, error) {
	var matches []string
	for _, f := range files {
		if strings.HasPrefix(filepath.Base(f), prefix) {
			matches = append(matches, f)
		}
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("expected exactly one %q* file in ISA archive, found %d", prefix, len(matches))
	}
	return matches[0], nil
}

// FileByName returns the extracted file matching a base name.
func FileByName(files []string, name string) (string, bool) {
	for _, f := range files {
		if filepath.Base(f) == name {
			return f, true
		}
	}
	return "", false
}
