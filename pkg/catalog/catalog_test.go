package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/wfdiag/pkg/catalog"
	"github.com/aescanero/wfdiag/pkg/domain"
	"github.com/aescanero/wfdiag/pkg/ports"
)

var nop = ports.CollectorFunc(func(context.Context, string) error { return nil })

func entry(name string, admin bool) catalog.Entry {
	return catalog.Entry{
		Descriptor: domain.TaskDescriptor{ID: domain.TaskID(name), Name: name, AdminRequired: admin},
		Collector:  nop,
	}
}

func ids(ds []domain.TaskDescriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}

func TestNewRejectsInvalidEntries(t *testing.T) {
	_, err := catalog.New(entry("A", false), entry("A", true))
	require.Error(t, err)

	_, err = catalog.New(catalog.Entry{Descriptor: domain.TaskDescriptor{Name: "x"}, Collector: nop})
	require.Error(t, err)

	_, err = catalog.New(catalog.Entry{Descriptor: domain.TaskDescriptor{ID: "x"}})
	require.Error(t, err)
}

func TestList(t *testing.T) {
	c := catalog.MustNew(entry("B", false), entry("Admin Only", true), entry("A", false))

	assert.Equal(t, []string{"b", "a"}, ids(c.List(false)))
	assert.Equal(t, []string{"b", "admin_only", "a"}, ids(c.List(true)))
}

func TestResolve(t *testing.T) {
	c := catalog.MustNew(entry("A", false), entry("B", false), entry("C", true))

	tests := []struct {
		name  string
		ids   []string
		admin bool
		want  []string
	}{
		{"catalog order", []string{"b", "a"}, false, []string{"a", "b"}},
		{"unknown dropped", []string{"a", "unknown_id"}, false, []string{"a"}},
		{"duplicates collapse", []string{"a", "a"}, false, []string{"a"}},
		{"admin hidden", []string{"c", "a"}, false, []string{"a"}},
		{"admin granted", []string{"c", "a"}, true, []string{"a", "c"}},
		{"empty", nil, true, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]string, 0)
			for _, e := range c.Resolve(tt.ids, tt.admin) {
				got = append(got, e.Descriptor.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault(t *testing.T) {
	c := catalog.Default()
	require.Equal(t, 36, c.Len())

	all := c.List(true)
	assert.Len(t, c.List(false), 31)
	for _, d := range all[31:] {
		assert.True(t, d.AdminRequired, d.ID)
	}
	assert.Equal(t, []string{"chkdsk", "dism_checkhealth", "battery_report", "driver_verifier", "bsod_minidump"}, ids(all[31:]))

	e, ok := c.Lookup("processor")
	require.True(t, ok)
	assert.Equal(t, "Processor", e.Descriptor.Name)
	assert.NotEmpty(t, e.Descriptor.Description)

	dx, ok := c.Lookup("dxdiag")
	require.True(t, ok)
	assert.Equal(t, 60*time.Second, dx.Timeout)
	assert.False(t, dx.Descriptor.AdminRequired)
}
