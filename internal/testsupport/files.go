package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Repeat("B", int(size))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// AnalyzerLine renders one mpdecimate debug line for the given frame time and
// drop marker.
func AnalyzerLine(ptsTime, dropCount string) string {
	return "[Parsed_mpdecimate_0 @ 0x5581] keep pts:0 pts_time:" + ptsTime + " drop_count:" + dropCount
}

// WriteAnalyzerLog writes an analyzer log built from (pts_time, drop_count)
// pairs, surrounded by typical ffmpeg noise.
func WriteAnalyzerLog(t testing.TB, path string, pairs ...[2]string) {
	t.Helper()

	lines := []string{
		"ffmpeg version 7.1 Copyright (c) 2000-2024 the FFmpeg developers",
		"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mp4':",
	}
	for _, pair := range pairs {
		lines = append(lines, AnalyzerLine(pair[0], pair[1]))
	}
	lines = append(lines, "[out#0/null @ 0x5590] video:0KiB audio:0KiB")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
