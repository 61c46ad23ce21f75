package appconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/appkeeper/internal/domain"
)

// Configuration is an ordered set of string properties.
// The zero value is not usable; use New or one of the loaders.
type Configuration struct {
	keys   []string
	values map[string]string
}

// New returns an empty configuration.
func New() *Configuration {
	return &Configuration{values: make(map[string]string)}
}

// FromMap builds a configuration from a map. Keys are sorted so the result
// is deterministic.
func FromMap(m map[string]string) *Configuration {
	c := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		c.Set(k, m[k])
	}
	return c
}

// Set stores value under key, keeping the original insertion position of an
// existing key.
func (c *Configuration) Set(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns the value of key, or "" when unset.
func (c *Configuration) Get(key string) string {
	return c.values[key]
}

// Lookup returns the value of key and whether it is set.
func (c *Configuration) Lookup(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Delete removes key.
func (c *Configuration) Delete(key string) {
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (c *Configuration) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of properties.
func (c *Configuration) Len() int {
	return len(c.keys)
}

// ToMap returns a copy of the properties.
func (c *Configuration) ToMap() map[string]string {
	m := make(map[string]string, len(c.values))
	for k, v := range c.values {
		m[k] = v
	}
	return m
}

// Clone returns a deep copy.
func (c *Configuration) Clone() *Configuration {
	out := New()
	for _, k := range c.keys {
		out.Set(k, c.values[k])
	}
	return out
}

// Merge overlays other onto c; keys present in other win.
func (c *Configuration) Merge(other *Configuration) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		c.Set(k, other.values[k])
	}
}

// Shared returns every property that is not connection scoped.
func (c *Configuration) Shared() *Configuration {
	out := New()
	for _, k := range c.keys {
		if strings.HasPrefix(k, ConnectionPrefix) {
			continue
		}
		out.Set(k, c.values[k])
	}
	return out
}

func (c *Configuration) trimmed(key string) string {
	return strings.TrimSpace(c.values[key])
}

// ApplicationName returns connection.application.name.
func (c *Configuration) ApplicationName() string { return c.trimmed(KeyApplicationName) }

// InstanceZookeepers returns the coordination connection string, including
// the instance chroot. Falls back to DefaultZookeepers.
func (c *Configuration) InstanceZookeepers() string {
	if v := c.trimmed(KeyZookeepers); v != "" {
		return v
	}
	return DefaultZookeepers
}

// AppZookeepers returns the application connection string: the instance
// connection string with the application name appended to its chroot.
func (c *Configuration) AppZookeepers() string {
	return domain.AppConnect(c.InstanceZookeepers(), c.ApplicationName())
}

// ZookeeperTimeout returns the coordination session timeout.
func (c *Configuration) ZookeeperTimeout() (time.Duration, error) {
	v := c.trimmed(KeyZookeeperTimeout)
	if v == "" {
		return DefaultZookeeperTimeout, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, KeyZookeeperTimeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", domain.ErrConfiguration, KeyZookeeperTimeout)
	}
	return d, nil
}

// TableName returns table.name.
func (c *Configuration) TableName() string { return c.trimmed(KeyTableName) }

// TableInstance returns table.instance.
func (c *Configuration) TableInstance() string { return c.trimmed(KeyTableInstance) }

// TableStore returns the table store kind, defaulting to DefaultTableStore.
func (c *Configuration) TableStore() string {
	if v := c.trimmed(KeyTableStore); v != "" {
		return strings.ToLower(v)
	}
	return DefaultTableStore
}

// TableStoreDir returns table.store.dir.
func (c *Configuration) TableStoreDir() string { return c.trimmed(KeyTableStoreDir) }

// TableJars returns the explicit dependency jar list.
func (c *Configuration) TableJars() []string { return splitList(c.values[KeyTableJars]) }

// TableJarsSearch returns the dependency jar search globs.
func (c *Configuration) TableJarsSearch() []string { return splitList(c.values[KeyTableJarsSearch]) }

// TableClasspath returns the pre-staged classpath.
func (c *Configuration) TableClasspath() string { return c.trimmed(KeyTableClasspath) }

// DFSRoot returns dfs.root without trailing slashes.
func (c *Configuration) DFSRoot() string { return strings.TrimRight(c.trimmed(KeyDFSRoot), "/") }

// S3Endpoint returns dfs.s3.endpoint.
func (c *Configuration) S3Endpoint() string { return c.trimmed(KeyS3Endpoint) }

// S3Region returns dfs.s3.region.
func (c *Configuration) S3Region() string { return c.trimmed(KeyS3Region) }

// S3Insecure reports whether dfs.s3.insecure is true.
func (c *Configuration) S3Insecure() bool {
	b, _ := strconv.ParseBool(c.trimmed(KeyS3Insecure))
	return b
}

// ObserverJarsURL returns observer.jars.url.
func (c *Configuration) ObserverJarsURL() string { return c.trimmed(KeyObserverJarsURL) }

// ObserverInitDir returns observer.init.dir.
func (c *Configuration) ObserverInitDir() string { return c.trimmed(KeyObserverInitDir) }

// MissingAdminProps lists required administrative keys that are unset.
func (c *Configuration) MissingAdminProps() []string {
	var missing []string
	for _, k := range requiredAdminKeys {
		if c.trimmed(k) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// HasRequiredAdminProps reports whether every required administrative key is set.
func (c *Configuration) HasRequiredAdminProps() bool {
	return len(c.MissingAdminProps()) == 0
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
