package packager

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ArchivePrefix prefixes every archive name: wfdiag-<dir>.zip.
const ArchivePrefix = "wfdiag-"

// Zip packs a directory into <parent>/wfdiag-<base>.zip.
type Zip struct {
	// Level is the deflate level; zero selects flate.DefaultCompression.
	Level int
}

// ArchivePath returns where Pack writes the archive for sourceDir.
func ArchivePath(sourceDir string) string {
	clean := filepath.Clean(sourceDir)
	return filepath.Join(filepath.Dir(clean), ArchivePrefix+filepath.Base(clean)+".zip")
}

func (z Zip) Pack(ctx context.Context, sourceDir string) (string, error) {
	dst := ArchivePath(sourceDir)
	tmp := dst + ".partial"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	if err := z.write(ctx, f, sourceDir); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return dst, nil
}

func (z Zip) write(ctx context.Context, w io.Writer, sourceDir string) error {
	level := z.Level
	if level == 0 {
		level = flate.DefaultCompression
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil || rel == "." {
			return err
		}
		name := filepath.ToSlash(rel)
		if d.IsDir() {
			_, err := zw.Create(name + "/")
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return addFile(zw, path, name, d)
	})
	if err != nil {
		_ = zw.Close()
		return fmt.Errorf("failed to archive %s: %w", sourceDir, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(w, src)
	return err
}

// IsArchive reports whether path names an archive produced by Zip.
func IsArchive(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ArchivePrefix) && strings.HasSuffix(base, ".zip")
}
