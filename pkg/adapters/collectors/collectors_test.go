package collectors_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aescanero/wfdiag/pkg/adapters/collectors"
	"github.com/aescanero/wfdiag/pkg/ports"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func lookSh(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
	return sh
}

func TestCommand(t *testing.T) {
	t.Parallel()
	sh := lookSh(t)

	t.Run("stdout is written to output", func(t *testing.T) {
		dir := t.TempDir()
		c := collectors.Command{Args: []string{sh, "-c", "echo hello"}, Output: "out.txt"}
		require.NoError(t, c.Collect(t.Context(), dir))

		b, err := os.ReadFile(filepath.Join(dir, "out.txt"))
		require.NoError(t, err)
		require.Equal(t, "hello\n", string(b))
	})

	t.Run("placeholder is replaced by output path", func(t *testing.T) {
		dir := t.TempDir()
		c := collectors.Command{
			Args:   []string{sh, "-c", "echo report > \"$0\"", collectors.OutputPlaceholder},
			Output: "report.txt",
		}
		require.NoError(t, c.Collect(t.Context(), dir))

		b, err := os.ReadFile(filepath.Join(dir, "report.txt"))
		require.NoError(t, err)
		require.Equal(t, "report\n", string(b))
	})

	t.Run("non zero exit keeps stdout and reports stderr", func(t *testing.T) {
		dir := t.TempDir()
		c := collectors.Command{Args: []string{sh, "-c", "echo partial; echo boom 1>&2; exit 3"}, Output: "out.txt"}
		err := c.Collect(t.Context(), dir)
		require.Error(t, err)
		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		require.Contains(t, err.Error(), "boom")

		b, rerr := os.ReadFile(filepath.Join(dir, "out.txt"))
		require.NoError(t, rerr)
		require.Equal(t, "partial\n", string(b))
	})

	t.Run("deadline stops the tool", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		t.Cleanup(cancel)

		start := time.Now()
		c := collectors.Command{Args: []string{sh, "-c", "sleep 10"}, Output: "out.txt"}
		err := c.Collect(ctx, t.TempDir())
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("missing binary", func(t *testing.T) {
		c := collectors.Command{Args: []string{"does-not-exist-wfdiag"}, Output: "out.txt"}
		err := c.Collect(t.Context(), t.TempDir())
		var execErr *exec.Error
		require.ErrorAs(t, err, &execErr)
	})
}

func TestByOS(t *testing.T) {
	t.Parallel()

	called := false
	ok := ports.CollectorFunc(func(context.Context, string) error {
		called = true
		return nil
	})

	tests := map[string]struct {
		table  collectors.ByOS
		expErr error
		called bool
	}{
		"running OS entry is used": {
			table:  collectors.ByOS{runtime.GOOS: ok},
			called: true,
		},
		"wildcard is the fallback": {
			table:  collectors.ByOS{"*": ok},
			called: true,
		},
		"missing entry is unsupported": {
			table:  collectors.ByOS{"plan9-never": ok},
			expErr: collectors.ErrUnsupported,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			called = false
			err := tt.table.Collect(t.Context(), t.TempDir())
			if tt.expErr != nil {
				require.ErrorIs(t, err, tt.expErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.called, called)
		})
	}
}

func TestSequenceJoinsErrors(t *testing.T) {
	t.Parallel()

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	var ran []string
	step := func(name string, err error) ports.Collector {
		return ports.CollectorFunc(func(context.Context, string) error {
			ran = append(ran, name)
			return err
		})
	}

	seq := collectors.Sequence{step("a", errA), step("b", nil), step("c", errB)}
	err := seq.Collect(t.Context(), t.TempDir())
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	require.Equal(t, []string{"a", "b", "c"}, ran)
}

func TestCopyRecent(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	now := time.Now()
	for i, name := range []string{"old.dmp", "mid.dmp", "new.dmp", "newest.dmp", "note.txt"} {
		p := filepath.Join(src, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
		mt := now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, os.Chtimes(p, mt, mt))
	}

	out := t.TempDir()
	c := collectors.CopyRecent{Dir: src, Ext: ".dmp", Limit: 3, Dest: "Minidump"}
	require.NoError(t, c.Collect(t.Context(), out))

	entries, err := os.ReadDir(filepath.Join(out, "Minidump"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"mid.dmp", "new.dmp", "newest.dmp"}, names)

	t.Run("missing source directory", func(t *testing.T) {
		c := collectors.CopyRecent{Dir: filepath.Join(src, "nope"), Ext: ".dmp", Limit: 3, Dest: "Minidump"}
		require.NoError(t, c.Collect(t.Context(), t.TempDir()))
	})
}

func TestCopyFile(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(src, []byte("127.0.0.1 localhost\n"), 0o644))

	out := t.TempDir()
	require.NoError(t, collectors.CopyFile{Source: src, Output: "HostsFile.txt"}.Collect(t.Context(), out))
	b, err := os.ReadFile(filepath.Join(out, "HostsFile.txt"))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1 localhost\n", string(b))

	err = collectors.CopyFile{Source: src + ".missing", Output: "x"}.Collect(t.Context(), out)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestProbeWritesYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := collectors.Probe{
		Output: "probe.yaml",
		Gather: func(context.Context) (any, error) {
			return map[string]int{"cores": 8}, nil
		},
	}
	require.NoError(t, p.Collect(t.Context(), dir))

	b, err := os.ReadFile(filepath.Join(dir, "probe.yaml"))
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, yaml.Unmarshal(b, &got))
	require.Equal(t, 8, got["cores"])

	t.Run("gather error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		p := collectors.Probe{Output: "x.yaml", Gather: func(context.Context) (any, error) { return nil, boom }}
		require.ErrorIs(t, p.Collect(t.Context(), t.TempDir()), boom)
	})
}

func TestEnvironmentProbe(t *testing.T) {
	t.Setenv("WFDIAG_PROBE_MARKER", "1")
	v, err := collectors.Environment(t.Context())
	require.NoError(t, err)
	require.Contains(t, v, "WFDIAG_PROBE_MARKER=1")
}
