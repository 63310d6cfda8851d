// ABOUTME: Publishing of finished report artifacts to downstream destinations.
// ABOUTME: Supports copying into a local docs tree and uploading to object storage.

package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Publisher pushes a finished report's artifacts somewhere readers can
// find them. Paths are the CSV and Markdown files produced for one date.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, date string, paths []string) error
}

// LocalDir copies report artifacts into a local directory, typically a
// checked-out documentation tree.
type LocalDir struct {
	dir    string
	logger *logrus.Logger
}

// NewLocalDir creates a publisher copying into dir.
func NewLocalDir(dir string, logger *logrus.Logger) *LocalDir {
	return &LocalDir{
		dir:    dir,
		logger: logger,
	}
}

// Name returns the publisher name.
func (p *LocalDir) Name() string {
	return "localdir"
}

// Publish copies each artifact into the target directory, overwriting any
// previous copy for the same date.
func (p *LocalDir) Publish(ctx context.Context, date string, paths []string) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create publish directory: %w", err)
	}

	for _, path := range paths {
		dest := filepath.Join(p.dir, filepath.Base(path))
		if err := copyFile(path, dest); err != nil {
			return fmt.Errorf("failed to publish %s: %w", filepath.Base(path), err)
		}
		p.logger.WithFields(logrus.Fields{
			"date": date,
			"dest": dest,
		}).Info("Published report artifact")
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
