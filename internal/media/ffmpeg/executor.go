package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// maxLineBytes bounds a single output line; ffmpeg never legitimately emits
// anything close to it.
const maxLineBytes = 1 << 20

// commandExecutor runs binary with stdout and stderr sharing one pipe, so
// lines reach onLine in the order the process wrote them.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	reader, writer, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("output pipe: %w", err)
	}
	defer reader.Close()

	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = writer
	cmd.Stderr = writer
	startErr := cmd.Start()
	// The child holds its own copy; closing ours lets the scanner see EOF.
	writer.Close()
	if startErr != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(binary), startErr)
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("read %s output: %w", filepath.Base(binary), scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d: %w", filepath.Base(binary), exitErr.ExitCode(), err)
		}
		return fmt.Errorf("wait %s: %w", filepath.Base(binary), err)
	}
	return nil
}
