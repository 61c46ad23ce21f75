package ports

import "context"

// ArtifactStager copies local files into the distributed file namespace so
// remote workers can load them.
type ArtifactStager interface {
	// Root returns the URL of the namespace root.
	Root() string

	// StageFiles copies files into <root>/<destDir>/ and returns one
	// resolvable URL per file, in input order.
	StageFiles(ctx context.Context, files []string, destDir string) ([]string, error)

	// StageDir replaces <root>/<destDir> with a copy of srcDir and returns
	// the URL of the copy.
	StageDir(ctx context.Context, srcDir, destDir string) (string, error)
}

// StagerConfig selects and configures a stager. The scheme of Root picks the
// implementation; the S3 fields apply to s3:// roots only.
type StagerConfig struct {
	Root       string
	S3Endpoint string
	S3Region   string
	S3Insecure bool
	Logger     Logger
}

// StagerFactory builds a stager for a dfs root.
type StagerFactory func(ctx context.Context, cfg StagerConfig) (ArtifactStager, error)
