package collectors

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CopyFile copies Source to Output inside the output directory.
type CopyFile struct {
	Source string
	Output string
}

func (c CopyFile) Collect(ctx context.Context, outputDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return copyFile(c.Source, filepath.Join(outputDir, c.Output))
}

// CopyRecent copies the Limit most recently modified files of Dir with
// extension Ext into the Dest sub directory. A missing Dir is not an error:
// hosts without crash dumps simply produce an empty directory.
type CopyRecent struct {
	Dir   string
	Ext   string
	Limit int
	Dest  string
}

func (c CopyRecent) Collect(ctx context.Context, outputDir string) error {
	dest := filepath.Join(outputDir, c.Dest)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type candidate struct {
		name  string
		mtime int64
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), c.Ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{name: e.Name(), mtime: info.ModTime().UnixNano()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime > files[j].mtime })

	for i, f := range files {
		if c.Limit > 0 && i >= c.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(filepath.Join(c.Dir, f.name), filepath.Join(dest, f.name)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
