package packager_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aescanero/wfdiag/pkg/adapters/packager"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestZipPack(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "session-1")
	writeTree(t, src, map[string]string{
		"report.json":         `{"ok":true}`,
		"Processor.yaml":      "model: test\n",
		"Minidump/crash1.dmp": "dump",
	})

	path, err := packager.Zip{}.Pack(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "wfdiag-session-1.zip"), path)
	assert.True(t, packager.IsArchive(path))
	assert.NoFileExists(t, path+".partial")

	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	contents := map[string]string{}
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[f.Name] = string(b)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Minidump/", "Minidump/crash1.dmp", "Processor.yaml", "report.json"}, names)
	assert.Equal(t, "dump", contents["Minidump/crash1.dmp"])
	assert.Equal(t, `{"ok":true}`, contents["report.json"])
}

func TestZipPackMissingDir(t *testing.T) {
	_, err := packager.Zip{}.Pack(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestZipPackCancelled(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := packager.Zip{}.Pack(ctx, src)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, packager.ArchivePath(src))
}

func TestReportPack(t *testing.T) {
	src := t.TempDir()

	_, err := packager.Report{}.Pack(context.Background(), src)
	require.Error(t, err)

	writeTree(t, src, map[string]string{packager.ReportFile: "{}"})
	path, err := packager.Report{}.Pack(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(src, packager.ReportFile), path)
}
