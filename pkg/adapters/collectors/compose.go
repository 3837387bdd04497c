package collectors

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/aescanero/wfdiag/pkg/ports"
)

// ErrUnsupported is returned by a collector with no implementation for the running OS.
var ErrUnsupported = errors.New("not supported on this operating system")

// ByOS selects a collector by runtime.GOOS. The "*" key matches any OS
// without its own entry.
type ByOS map[string]ports.Collector

func (b ByOS) Collect(ctx context.Context, outputDir string) error {
	return b.collect(ctx, runtime.GOOS, outputDir)
}

func (b ByOS) collect(ctx context.Context, goos, outputDir string) error {
	c, ok := b[goos]
	if !ok {
		c, ok = b["*"]
	}
	if !ok {
		return fmt.Errorf("%s: %w", goos, ErrUnsupported)
	}
	return c.Collect(ctx, outputDir)
}

// Sequence runs every collector in order and joins their errors.
// It stops early only when ctx is done.
type Sequence []ports.Collector

func (s Sequence) Collect(ctx context.Context, outputDir string) error {
	var errs []error
	for _, c := range s {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.Collect(ctx, outputDir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
