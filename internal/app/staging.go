package app

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/bft-labs/appkeeper/internal/appconfig"
	"github.com/bft-labs/appkeeper/internal/domain"
	"github.com/bft-labs/appkeeper/internal/ports"
)

// Destination directories under <dfs root>/<application>.
const (
	jarsDir      = "lib/accumulo"
	observersDir = "lib/observers"
)

// stagingPlan is what initialize will stage, resolved before any mutation.
type stagingPlan struct {
	jars        []string
	observerDir string
}

func (p stagingPlan) empty() bool {
	return len(p.jars) == 0 && p.observerDir == ""
}

// planStaging validates the artifact settings and resolves the dependency
// jars. Explicit table.jars win over table.jars.search.
func (c *Coordinator) planStaging() (stagingPlan, error) {
	var plan stagingPlan
	dfsRoot := c.cfg.DFSRoot()

	if c.cfg.ObserverJarsURL() != "" && c.cfg.ObserverInitDir() != "" {
		return plan, fmt.Errorf("%w: set only one of %s and %s",
			domain.ErrConfiguration, appconfig.KeyObserverJarsURL, appconfig.KeyObserverInitDir)
	}
	if dir := c.cfg.ObserverInitDir(); dir != "" {
		if dfsRoot == "" {
			return plan, fmt.Errorf("%w: %s requires %s", domain.ErrConfiguration, appconfig.KeyObserverInitDir, appconfig.KeyDFSRoot)
		}
		plan.observerDir = dir
	}

	if jars := c.cfg.TableJars(); len(jars) > 0 {
		if dfsRoot == "" {
			return plan, fmt.Errorf("%w: %s requires %s", domain.ErrConfiguration, appconfig.KeyTableJars, appconfig.KeyDFSRoot)
		}
		plan.jars = jars
	} else if dfsRoot != "" {
		for _, pattern := range c.cfg.TableJarsSearch() {
			matches, err := searchJars(pattern)
			if err != nil {
				return plan, fmt.Errorf("%w: %s pattern %q: %w", domain.ErrConfiguration, appconfig.KeyTableJarsSearch, pattern, err)
			}
			plan.jars = append(plan.jars, matches...)
		}
	}

	jars, err := uniqueJars(plan.jars)
	if err != nil {
		return plan, err
	}
	plan.jars = jars
	if !plan.empty() && c.stagers == nil {
		return plan, fmt.Errorf("%w: artifacts must be staged but no stager is configured", domain.ErrConfiguration)
	}
	return plan, nil
}

// uniqueJars drops repeated paths and rejects distinct jars that would be
// staged to the same file.
func uniqueJars(jars []string) ([]string, error) {
	var out []string
	byName := make(map[string]string, len(jars))
	for _, jar := range jars {
		name := filepath.Base(jar)
		prev, ok := byName[name]
		switch {
		case !ok:
			byName[name] = jar
			out = append(out, jar)
		case filepath.Clean(prev) != filepath.Clean(jar):
			return nil, fmt.Errorf("%w: jars %s and %s share the file name %s",
				domain.ErrConfiguration, prev, jar, name)
		}
	}
	return out, nil
}

// searchJars expands a jar search pattern. "**" matches any number of
// directories.
func searchJars(pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// stage copies the planned artifacts and registers the classpath context.
// The observer URL is recorded in snapshot. It returns the classpath context
// for the table, or "" when there is none.
func (c *Coordinator) stage(ctx context.Context, plan stagingPlan, snapshot *appconfig.Configuration) (string, error) {
	classpath := c.cfg.TableClasspath()

	if !plan.empty() {
		stager, err := c.stagers(ctx, ports.StagerConfig{
			Root:       c.cfg.DFSRoot(),
			S3Endpoint: c.cfg.S3Endpoint(),
			S3Region:   c.cfg.S3Region(),
			S3Insecure: c.cfg.S3Insecure(),
			Logger:     c.logger,
		})
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrStaging, err)
		}
		appDir := c.cfg.ApplicationName()

		if len(plan.jars) > 0 {
			urls, err := stager.StageFiles(ctx, plan.jars, path.Join(appDir, jarsDir))
			if err != nil {
				return "", fmt.Errorf("%w: dependency jars: %w", domain.ErrStaging, err)
			}
			classpath = strings.Join(urls, ",")
			c.logger.Info("staged dependency jars",
				ports.Int("count", len(urls)),
				ports.String("root", stager.Root()))
		}

		if plan.observerDir != "" {
			u, err := stager.StageDir(ctx, plan.observerDir, path.Join(appDir, observersDir))
			if err != nil {
				return "", fmt.Errorf("%w: observer code: %w", domain.ErrStaging, err)
			}
			snapshot.Set(appconfig.KeyObserverJarsURL, u)
			c.setObserverURL(u)
			c.logger.Info("staged observer code", ports.String("url", u))
		}
	}

	if classpath == "" {
		return "", nil
	}
	name := domain.ClasspathContext(c.cfg.ApplicationName())
	if err := c.tables.SetInstanceProperty(ctx, domain.PropVFSContextPrefix+name, classpath); err != nil {
		return "", storageError("register classpath context "+name, err)
	}
	return name, nil
}
