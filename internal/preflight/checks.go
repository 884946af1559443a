package preflight

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"stillcut/internal/analysiscache"
)

const commandCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFilter verifies that ffmpeg was built with the named filter.
func CheckFilter(ctx context.Context, ffmpegBinary, filter string) Result {
	name := "Filter " + filter
	checkCtx, cancel := context.WithTimeout(ctx, commandCheckTimeout)
	defer cancel()

	out, err := exec.CommandContext(checkCtx, ffmpegBinary, "-hide_banner", "-filters").Output()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("list filters failed (%v)", err)}
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// " ... mpdecimate        V->V       Remove near-duplicate frames."
		if len(fields) >= 2 && fields[1] == filter {
			return Result{Name: name, Passed: true, Detail: "available"}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s does not provide %s", ffmpegBinary, filter)}
}

// CheckCache opens the analysis cache and reports its entry count.
func CheckCache(ctx context.Context, path string) Result {
	const name = "Analysis cache"
	store, err := analysiscache.Open(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()
	entries, err := store.List(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", path, len(entries))}
}
