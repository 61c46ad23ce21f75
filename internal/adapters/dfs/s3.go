package dfs

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/appkeeper/internal/ports"
	"github.com/bft-labs/appkeeper/pkg/log"
)

const artifactContentType = "application/octet-stream"

// S3Config configures the S3 stager.
type S3Config struct {
	Endpoint string
	Region   string
	Insecure bool
	Bucket   string
	Prefix   string
	// Creds overrides the default environment/file/IAM credential chain.
	Creds *credentials.Credentials
}

// S3 stages artifacts into an S3-compatible bucket.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
	logger ports.Logger
}

// NewS3 creates an S3 stager. Credentials come from the standard AWS and
// MinIO environment variables, the shared credentials file, or IAM.
func NewS3(ctx context.Context, cfg S3Config, logger ports.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("dfs: s3 bucket is required")
	}
	if logger == nil {
		logger = &log.NoopLogger{}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region != "" {
			endpoint = fmt.Sprintf("s3.%s.amazonaws.com", cfg.Region)
		} else {
			endpoint = "s3.amazonaws.com"
		}
	}
	creds := cfg.Creds
	if creds == nil {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        creds,
		Secure:       !cfg.Insecure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("dfs: create s3 client: %w", err)
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// Root implements ports.ArtifactStager.
func (s *S3) Root() string { return s.url(s.prefix) }

// StageFiles implements ports.ArtifactStager.
func (s *S3) StageFiles(ctx context.Context, files []string, destDir string) ([]string, error) {
	urls := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)
	for i, src := range files {
		i, src := i, src
		g.Go(func() error {
			key := s.key(destDir, filepath.Base(src))
			info, err := s.client.FPutObject(ctx, s.bucket, key, src, minio.PutObjectOptions{ContentType: artifactContentType})
			if err != nil {
				return fmt.Errorf("stage %s: %w", src, err)
			}
			urls[i] = s.url(key)
			s.logger.Debug("staged file",
				log.String("src", src),
				log.String("dest", urls[i]),
				log.String("size", humanize.Bytes(uint64(info.Size))))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// StageDir implements ports.ArtifactStager.
func (s *S3) StageDir(ctx context.Context, srcDir, destDir string) (string, error) {
	base := s.key(destDir)
	if err := s.removePrefix(ctx, base+"/"); err != nil {
		return "", err
	}
	rels, err := walkFiles(srcDir)
	if err != nil {
		return "", err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(stageConcurrency)
	for _, rel := range rels {
		rel := rel
		g.Go(func() error {
			src := filepath.Join(srcDir, filepath.FromSlash(rel))
			_, err := s.client.FPutObject(ctx, s.bucket, path.Join(base, rel), src, minio.PutObjectOptions{ContentType: artifactContentType})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("stage %s: %w", srcDir, err)
	}
	s.logger.Info("staged directory",
		log.String("src", srcDir),
		log.String("dest", s.url(base)),
		log.Int("files", len(rels)))
	return s.url(base), nil
}

func (s *S3) removePrefix(ctx context.Context, prefix string) error {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for object := range s.client.ListObjects(ctx, s.bucket, opts) {
		if object.Err != nil {
			return fmt.Errorf("list %s: %w", prefix, object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", object.Key, err)
		}
	}
	return nil
}

func (s *S3) key(parts ...string) string {
	return strings.TrimPrefix(path.Join(append([]string{s.prefix}, parts...)...), "/")
}

func (s *S3) url(key string) string {
	if key == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + key
}
