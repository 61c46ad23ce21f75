package dfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

// Local stages artifacts into a directory on a shared filesystem.
type Local struct {
	dir    string
	logger ports.Logger
}

// NewLocal creates a stager rooted at dir.
func NewLocal(dir string, logger ports.Logger) *Local {
	if logger == nil {
		logger = &log.NoopLogger{}
	}
	return &Local{dir: filepath.Clean(dir), logger: logger}
}

// Root implements ports.ArtifactStager.
func (l *Local) Root() string { return fileURL(l.dir) }

// StageFiles implements ports.ArtifactStager.
func (l *Local) StageFiles(ctx context.Context, files []string, destDir string) ([]string, error) {
	dest := filepath.Join(l.dir, filepath.FromSlash(destDir))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}

	urls := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)
	for i, src := range files {
		i, src := i, src
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			target := filepath.Join(dest, filepath.Base(src))
			if err := copyFile(src, target); err != nil {
				return fmt.Errorf("stage %s: %w", src, err)
			}
			urls[i] = fileURL(target)
			l.logger.Debug("staged file",
				log.String("src", src),
				log.String("dest", urls[i]),
				log.String("size", humanize.Bytes(fileSize(target))))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// StageDir implements ports.ArtifactStager.
func (l *Local) StageDir(ctx context.Context, srcDir, destDir string) (string, error) {
	dest := filepath.Join(l.dir, filepath.FromSlash(destDir))
	if err := os.RemoveAll(dest); err != nil {
		return "", err
	}
	rels, err := walkFiles(srcDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)
	for _, rel := range rels {
		rel := rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			target := filepath.Join(dest, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			return copyFile(filepath.Join(srcDir, filepath.FromSlash(rel)), target)
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("stage %s: %w", srcDir, err)
	}
	l.logger.Info("staged directory",
		log.String("src", srcDir),
		log.String("dest", fileURL(dest)),
		log.Int("files", len(rels)))
	return fileURL(dest), nil
}

// copyFile writes src to dst through a temp file and rename so readers
// never see a partial artifact.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}

func fileURL(p string) string {
	return "file://" + filepath.ToSlash(p)
}
