package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ReportFile is the name of the JSON report inside every session directory.
const ReportFile = "report.json"

// Report returns the session's report.json as the artifact.
type Report struct{}

func (Report) Pack(ctx context.Context, sourceDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(sourceDir, ReportFile)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to locate report: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("report %s is not a regular file", path)
	}
	return path, nil
}
