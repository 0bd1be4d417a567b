package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deckgen/deckgen/pkg/logger"
)

// DocumentFile is one discovered input document.
type DocumentFile struct {
	AbsolutePath string
	RelativePath string
}

// DirectoryScanner walks a directory tree for slide-deck documents.
type DirectoryScanner struct {
	log *logger.Logger
}

func NewScanner(log *logger.Logger) *DirectoryScanner {
	return &DirectoryScanner{log: log}
}

// FindDocuments returns every .pdf and .pptx under dir.
func (s *DirectoryScanner) FindDocuments(ctx context.Context, dir string) ([]DocumentFile, error) {
	var found []DocumentFile

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			s.log.Debug("Scanning directory: %s", path)
			return nil
		}

		switch filepath.Ext(path) {
		case ".pdf", ".pptx":
		default:
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			relPath = path
		}

		found = append(found, DocumentFile{
			AbsolutePath: path,
			RelativePath: relPath,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no PDF or PPTX files found in %s or its subdirectories", dir)
	}

	return found, nil
}
