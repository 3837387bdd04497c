package catalog

import (
	"fmt"
	"time"

	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

// Entry is one registered task.
type Entry struct {
	Descriptor domain.TaskDescriptor
	Collector  ports.Collector
	// Timeout overrides the default collector timeout when non-zero.
	Timeout time.Duration
}

// Catalog is immutable once built.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// New builds a catalog. Ids must be unique and every entry needs a collector.
func New(entries ...Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		id := e.Descriptor.ID
		if id == "" {
			return nil, fmt.Errorf("task %q has no id", e.Descriptor.Name)
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("duplicate task id %q", id)
		}
		if e.Collector == nil {
			return nil, fmt.Errorf("task %q has no collector", id)
		}
		c.index[id] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// MustNew is New that panics on error, for statically declared catalogs.
func MustNew(entries ...Entry) *Catalog {
	c, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return c
}

func visible(d domain.TaskDescriptor, adminGranted bool) bool {
	return !d.AdminRequired || adminGranted
}

// List returns the descriptors visible with the given privilege, in declaration order.
func (c *Catalog) List(adminGranted bool) []domain.TaskDescriptor {
	out := make([]domain.TaskDescriptor, 0, len(c.entries))
	for _, e := range c.entries {
		if visible(e.Descriptor, adminGranted) {
			out = append(out, e.Descriptor)
		}
	}
	return out
}

// Lookup returns the entry registered under id.
func (c *Catalog) Lookup(id string) (Entry, bool) {
	i, ok := c.index[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Resolve maps requested ids to visible entries in catalog order. Unknown,
// hidden and repeated ids are dropped.
func (c *Catalog) Resolve(ids []string, adminGranted bool) []Entry {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]Entry, 0, len(want))
	for _, e := range c.entries {
		if _, ok := want[e.Descriptor.ID]; ok && visible(e.Descriptor, adminGranted) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of registered tasks.
func (c *Catalog) Len() int { return len(c.entries) }
