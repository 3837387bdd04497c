package collectors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// OutputPlaceholder in Command.Args is replaced by the output file path, for
// tools that write their own report instead of printing it.
const OutputPlaceholder = "{out}"

const (
	waitDelay    = 2 * time.Second
	maxStderrLen = 512
)

// Command runs an external diagnostic tool.
//
// Without a placeholder argument, stdout is written to Output. A non-zero exit
// status is an error; stdout is kept so partial output still ends up in the archive.
type Command struct {
	Args   []string
	Env    []string
	Output string
}

func (c Command) Collect(ctx context.Context, outputDir string) error {
	if len(c.Args) == 0 {
		return errors.New("command has no arguments")
	}
	outPath := filepath.Join(outputDir, c.Output)

	args := make([]string, 0, len(c.Args))
	placeholder := false
	for _, a := range c.Args {
		if strings.Contains(a, OutputPlaceholder) {
			placeholder = true
			a = strings.ReplaceAll(a, OutputPlaceholder, outPath)
		}
		args = append(args, a)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	// kill on deadline does not wait for grandchildren holding the pipes
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if !placeholder && stdout.Len() > 0 {
		if err := os.WriteFile(outPath, stdout.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", c.Output, err)
		}
	}

	if runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", args[0], ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrLen {
			msg = msg[:maxStderrLen]
		}
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], runErr, msg)
		}
		return fmt.Errorf("%s: %w", args[0], runErr)
	}
	return nil
}
