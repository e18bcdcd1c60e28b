package gen

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// File permission constants.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// WriteFiles writes every generated file into its package directory and
// returns the paths that changed. Files whose content is already up to
// date are left alone so their modification time stays put; files marked
// Remove are deleted.
func WriteFiles(files []GeneratedFile) ([]string, error) {
	var written []string

	for _, file := range files {
		if file.Remove {
			err := os.Remove(file.Path())
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			if err != nil {
				return written, fmt.Errorf("removing file %s: %w", file.Path(), err)
			}

			written = append(written, file.Path())

			continue
		}

		if err := os.MkdirAll(file.Dir, dirPerm); err != nil {
			return written, fmt.Errorf("creating directory %s: %w", file.Dir, err)
		}

		path := file.Path()

		current, err := os.ReadFile(path)
		if err == nil && bytes.Equal(current, file.Content) {
			continue
		}

		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return written, fmt.Errorf("reading file %s: %w", path, err)
		}

		if err := os.WriteFile(path, file.Content, filePerm); err != nil {
			return written, fmt.Errorf("writing file %s: %w", path, err)
		}

		written = append(written, path)
	}

	return written, nil
}
