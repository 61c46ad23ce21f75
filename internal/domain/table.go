package domain

import "sort"

// IteratorScope is a compaction or scan scope at which an iterator runs.
type IteratorScope string

const (
	ScopeScan  IteratorScope = "scan"
	ScopeMinor IteratorScope = "minc"
	ScopeMajor IteratorScope = "majc"
)

// Column families and groups reserved by the application.
const (
	NotifyColumnFamily       = "ntfy"
	GCColumnFamily           = "gc"
	NotifyLocalityGroup      = "notify"
	GCIteratorClass          = "GarbageCollectionIterator"
	NotificationIteratorName = "NotificationIterator"
	GCIteratorPriority       = 10
	NotifyIteratorPriority   = 11

	// GCZookeepersOption carries the application connection string to the
	// garbage-collection iterator so it can read the gc watermark.
	GCZookeepersOption = "zookeepers"
)

// Table and instance properties written at table creation.
const (
	PropBlockCacheEnabled  = "table.cache.block.enable"
	PropDeleteBehavior     = "table.delete.behavior"
	DeleteBehaviorFail     = "fail"
	PropClasspathContext   = "table.classpath.context"
	PropVFSContextPrefix   = "general.vfs.context.classpath."
	ClasspathContextPrefix = "appkeeper-"
)

// IteratorSetting attaches a server-side processing stage to a table.
type IteratorSetting struct {
	Priority int
	Name     string
	Class    string
	Options  map[string]string
	Scopes   []IteratorScope
}

// TableConfig describes how the backing table is created.
type TableConfig struct {
	Properties              map[string]string
	LocalityGroups          map[string][]string
	Iterators               []IteratorSetting
	ExcludeDefaultIterators bool
}

// NewTableConfig returns the backing table definition for an application.
// appConnect parameterizes the garbage-collection iterator; classpathContext
// is set on the table when dependency jars were staged.
func NewTableConfig(appConnect, classpathContext string) TableConfig {
	scopes := []IteratorScope{ScopeMinor, ScopeMajor}
	props := map[string]string{
		PropBlockCacheEnabled: "true",
		PropDeleteBehavior:    DeleteBehaviorFail,
	}
	if classpathContext != "" {
		props[PropClasspathContext] = classpathContext
	}
	return TableConfig{
		Properties: props,
		LocalityGroups: map[string][]string{
			NotifyLocalityGroup: {NotifyColumnFamily},
		},
		Iterators: []IteratorSetting{
			{
				Priority: GCIteratorPriority,
				Name:     GCColumnFamily,
				Class:    GCIteratorClass,
				Options:  map[string]string{GCZookeepersOption: appConnect},
				Scopes:   scopes,
			},
			{
				// relative order to the gc iterator does not matter
				Priority: NotifyIteratorPriority,
				Name:     NotifyColumnFamily,
				Class:    NotificationIteratorName,
				Scopes:   scopes,
			},
		},
		ExcludeDefaultIterators: true,
	}
}

// ClasspathContext names the instance classpath context of an application.
func ClasspathContext(appName string) string {
	return ClasspathContextPrefix + appName
}

// SortedIterators returns the iterators ordered by priority.
func (c TableConfig) SortedIterators() []IteratorSetting {
	out := append([]IteratorSetting(nil), c.Iterators...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
