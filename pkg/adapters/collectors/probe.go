package collectors

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GatherFunc produces the value a Probe writes.
type GatherFunc func(ctx context.Context) (any, error)

// Probe gathers a value in-process and writes it as a YAML document to Output.
type Probe struct {
	Output string
	Gather GatherFunc
}

func (p Probe) Collect(ctx context.Context, outputDir string) error {
	v, err := p.Gather(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(outputDir, p.Output))
	if err != nil {
		return fmt.Errorf("creating %s: %w", p.Output, err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding %s: %w", p.Output, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
