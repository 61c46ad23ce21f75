// Package dfs stages dependency and observer artifacts into the distributed
// file namespace that table servers and workers load code from.
package dfs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

const (
	schemeFile = "file"
	schemeS3   = "s3"

	// stageConcurrency bounds parallel uploads per call.
	stageConcurrency = 4
)

// NewStager returns a stager for cfg.Root. A bare absolute path is treated
// as a file:// root. It satisfies ports.StagerFactory.
func NewStager(ctx context.Context, cfg ports.StagerConfig) (ports.ArtifactStager, error) {
	if cfg.Logger == nil {
		cfg.Logger = &log.NoopLogger{}
	}
	logger := cfg.Logger.With(log.Component("dfs"))

	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("dfs: root is empty")
	}
	if filepath.IsAbs(root) {
		return NewLocal(root, logger), nil
	}

	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("dfs: parse root %q: %w", root, err)
	}
	switch u.Scheme {
	case schemeFile:
		return NewLocal(u.Path, logger), nil
	case schemeS3:
		return NewS3(ctx, S3Config{
			Endpoint: cfg.S3Endpoint,
			Region:   cfg.S3Region,
			Insecure: cfg.S3Insecure,
			Bucket:   u.Host,
			Prefix:   u.Path,
		}, logger)
	default:
		return nil, fmt.Errorf("dfs: unsupported scheme %q in %s", u.Scheme, root)
	}
}

// fileSize returns the size of a local file for logging.
func fileSize(p string) uint64 {
	info, err := os.Stat(p)
	if err != nil || info.Size() < 0 {
		return 0
	}
	return uint64(info.Size())
}

// walkFiles lists the regular files under dir as slash-separated relative
// paths.
func walkFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	return out, err
}
