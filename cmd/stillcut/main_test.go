package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"stillcut/internal/config"
	"stillcut/internal/logging"
	"stillcut/internal/services"
	"stillcut/internal/testsupport"
	"stillcut/internal/trim"
)

// ffmpegStub lists the mpdecimate filter and touches every .mp4 output it is
// asked to write.
const ffmpegStub = `prev=""
for arg in "$@"; do
  case "$arg" in
    -filters)
      echo " ... mpdecimate        V->V       Remove near-duplicate frames."
      exit 0
      ;;
  esac
  if [ "$prev" != "-i" ]; then
    case "$arg" in
      *.mp4) : > "$arg" ;;
    esac
  fi
  prev="$arg"
done
exit 0
`

const ffprobeStub = `case "$*" in
  *-show_format*)
    echo '{"streams":[{"index":0,"codec_type":"video"}],"format":{"duration":"10.000000","size":"64"}}'
    ;;
  *)
    printf '0\n1\n3\n7\n9\n'
    ;;
esac
`

type cliEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLIEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	opts = append([]testsupport.ConfigOption{
		testsupport.WithThresholds("2", "1"),
		testsupport.WithStubScript("ffmpeg", ffmpegStub),
		testsupport.WithStubScript("ffprobe", ffprobeStub),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)
	cfg.FFmpeg.FFmpegBinary = filepath.Join(base, "bin", "ffmpeg")
	cfg.FFmpeg.FFprobeBinary = filepath.Join(base, "bin", "ffprobe")

	configPath := filepath.Join(base, "stillcut.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (e *cliEnv) writeLog(t *testing.T, pairs ...[2]string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "analyzer.log")
	testsupport.WriteAnalyzerLog(t, path, pairs...)
	return path
}

func (e *cliEnv) writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "media", "clip.mp4")
	testsupport.WriteFile(t, path, 64)
	return path
}

var staticRun = [][2]string{{"0", "0"}, {"2", "-1"}, {"8", "-2"}, {"10", "0"}}

func TestCLIConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "conf", "stillcut.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected init output: %q", out)
	}

	_, _, err = runCLI(t, "", "config", "init", "--path", target)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}

	out, _, err = runCLI(t, target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "[OK] valid") || !strings.Contains(out, "min_drop 5.000000s, min_keep 1.000000s") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	out, _, err = runCLI(t, target, "--log-level", "debug", "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	var shown config.Config
	if err := toml.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("config show is not TOML: %v\n%s", err, out)
	}
	if shown.Logging.Level != "debug" || shown.Detection.MinDrop != "5" {
		t.Fatalf("unexpected effective config: %+v %+v", shown.Logging, shown.Detection)
	}
}

func TestCLIConfigValidateRejectsBadLogLevel(t *testing.T) {
	env := setupCLIEnv(t)
	_, _, err := runCLI(t, env.configPath, "--log-level", "loud", "config", "validate")
	if err == nil {
		t.Fatal("expected invalid log level to fail")
	}
	if code := exitCode(err); code != services.ExitUsage {
		t.Fatalf("exit code = %d, want %d", code, services.ExitUsage)
	}
}

func TestCLIDetectFromLogJSON(t *testing.T) {
	env := setupCLIEnv(t)
	logPath := env.writeLog(t, staticRun...)

	out, _, err := runCLI(t, env.configPath,
		"detect", filepath.Join(env.baseDir, "missing.mp4"), "--from-log", logPath, "--json")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var payload detectJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode detect output: %v (%q)", err, out)
	}
	if payload.Source != trim.SourceLog || payload.CutRuns != 1 || payload.WholeInput {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.Intervals) != 2 {
		t.Fatalf("intervals = %+v", payload.Intervals)
	}
	first, second := payload.Intervals[0], payload.Intervals[1]
	if first.Start != "0.000000" || first.End != "2.000000" || first.Open {
		t.Fatalf("first interval = %+v", first)
	}
	if second.Start != "8.000000" || !second.Open {
		t.Fatalf("second interval = %+v", second)
	}
}

func TestCLIDetectTableWithMinDropOverride(t *testing.T) {
	env := setupCLIEnv(t)
	logPath := env.writeLog(t, staticRun...)

	out, _, err := runCLI(t, env.configPath,
		"detect", filepath.Join(env.baseDir, "missing.mp4"), "--from-log", logPath, "--min-drop", "10")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if !strings.Contains(out, "Nothing to drop") {
		t.Fatalf("a 6s run is shorter than min_drop 10, got %q", out)
	}
}

func TestCLITrimDryRun(t *testing.T) {
	env := setupCLIEnv(t)
	input := env.writeInput(t)
	logPath := env.writeLog(t, staticRun...)

	out, _, err := runCLI(t, env.configPath, "trim", input, "--from-log", logPath, "--dry-run", "--mode", "copy")
	if err != nil {
		t.Fatalf("trim --dry-run: %v", err)
	}
	if !strings.Contains(out, "Dry run: 3 ffmpeg command(s)") {
		t.Fatalf("unexpected dry run output: %q", out)
	}
	if !strings.Contains(out, "Mode:      Copy") {
		t.Fatalf("expected mode label, got %q", out)
	}
	if _, err := os.Stat(env.cfg.OutputPath(input)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run wrote output (stat err %v)", err)
	}
}

func TestCLITrimWritesOutput(t *testing.T) {
	env := setupCLIEnv(t)
	input := env.writeInput(t)
	logPath := env.writeLog(t, staticRun...)
	output := filepath.Join(env.baseDir, "out", "cut.mp4")

	out, _, err := runCLI(t, env.configPath, "trim", input, "--from-log", logPath, "-o", output)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if !strings.Contains(out, "Wrote "+output) {
		t.Fatalf("unexpected trim output: %q", out)
	}
	if !strings.Contains(out, "Removed:") || !strings.Contains(out, "00:00:04.000000") {
		t.Fatalf("expected 4s removed after alignment, got %q", out)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	_, _, err = runCLI(t, env.configPath, "trim", input, "--from-log", logPath, "-o", output)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected existing output to be refused, got %v", err)
	}
}

func TestCLITrimNotifiesOutcome(t *testing.T) {
	var mu sync.Mutex
	var titles []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLIEnv(t, testsupport.WithNtfyTopic(server.URL))
	input := env.writeInput(t)
	logPath := env.writeLog(t, staticRun...)
	output := filepath.Join(env.baseDir, "out", "cut.mp4")

	if _, _, err := runCLI(t, env.configPath, "trim", input, "--from-log", logPath, "-o", output); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, "trim", input, "--from-log", logPath, "-o", output); err == nil {
		t.Fatal("expected second trim to refuse the existing output")
	}
	if _, _, err := runCLI(t, env.configPath, "trim", input, "--from-log", logPath, "-o", output+".mp4", "--dry-run"); err != nil {
		t.Fatalf("trim --dry-run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"stillcut - Trim Complete", "stillcut - Trim Failed"}
	if strings.Join(titles, "|") != strings.Join(want, "|") {
		t.Fatalf("notifications = %q, want %q", titles, want)
	}
}

func TestCLITrimFailsFastWithoutFFmpeg(t *testing.T) {
	env := setupCLIEnv(t)
	input := env.writeInput(t)
	logPath := env.writeLog(t, staticRun...)
	env.cfg.FFmpeg.FFmpegBinary = filepath.Join(env.baseDir, "bin", "no-such-ffmpeg")
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, env.configPath, "trim", input, "--from-log", logPath)
	if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), "no-such-ffmpeg") {
		t.Fatalf("expected missing ffmpeg to be reported, got %v", err)
	}
}

func TestCLITrimNothingToDropSucceeds(t *testing.T) {
	env := setupCLIEnv(t)
	input := env.writeInput(t)
	logPath := env.writeLog(t, [2]string{"2", "-1"}, [2]string{"3", "-2"}, [2]string{"10", "0"})

	out, _, err := runCLI(t, env.configPath, "trim", input, "--from-log", logPath)
	if err != nil {
		t.Fatalf("nothing to drop should not fail: %v", err)
	}
	if !strings.Contains(out, "Nothing to drop") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLITrimRequiresOneInput(t *testing.T) {
	env := setupCLIEnv(t)
	_, _, err := runCLI(t, env.configPath, "trim")
	if exitCode(err) != services.ExitUsage {
		t.Fatalf("expected usage exit, got %v", err)
	}
	_, _, err = runCLI(t, env.configPath, "trim", "a.mp4", "--bogus")
	if exitCode(err) != services.ExitUsage {
		t.Fatalf("expected usage exit for unknown flag, got %v", err)
	}
}

func TestCLICheck(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env.configPath, "check")
	if err != nil {
		t.Fatalf("check: %v (%s)", err, out)
	}
	for _, want := range []string{"FFmpeg:", "Filter mpdecimate:", "[OK] available", "Work directory:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("check output missing %q: %q", want, out)
		}
	}

	env.cfg.FFmpeg.FFmpegBinary = filepath.Join(env.baseDir, "bin", "no-such-ffmpeg")
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err = runCLI(t, env.configPath, "check")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected failing check, got %v", err)
	}
	if !strings.Contains(out, "[FAIL]") {
		t.Fatalf("expected FAIL status, got %q", out)
	}
}

func TestCLICacheCommands(t *testing.T) {
	env := setupCLIEnv(t)
	out, _, err := runCLI(t, env.configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "Analysis cache is empty") {
		t.Fatalf("unexpected list output: %q", out)
	}

	out, _, err = runCLI(t, env.configPath, "cache", "list", "--json")
	if err != nil {
		t.Fatalf("cache list --json: %v", err)
	}
	var payload struct {
		Entries []cacheEntryJSON `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil || len(payload.Entries) != 0 {
		t.Fatalf("unexpected json output %q (err %v)", out, err)
	}

	out, _, err = runCLI(t, env.configPath, "cache", "clear")
	if err != nil || !strings.Contains(out, "Cleared 0 cache entries") {
		t.Fatalf("cache clear: %q (err %v)", out, err)
	}
	out, _, err = runCLI(t, env.configPath, "cache", "prune")
	if err != nil || !strings.Contains(out, "Pruned 0 cache entries") {
		t.Fatalf("cache prune: %q (err %v)", out, err)
	}
}

func TestCLICacheDisabled(t *testing.T) {
	env := setupCLIEnv(t, testsupport.WithoutCache())
	out, _, err := runCLI(t, env.configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "disabled") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLICleanRemovesStaleRuns(t *testing.T) {
	env := setupCLIEnv(t)
	stale := filepath.Join(env.cfg.Paths.WorkDir, "0b9f3c0e-4c1a-4d43-9d8e-2f7c5a1e9b10")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir stale run: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "clean", "--max-age", "0s")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(out, "Removed 1 stale entries") {
		t.Fatalf("unexpected clean output: %q", out)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale run survived (stat err %v)", err)
	}
}

func TestLogsFiltersByRun(t *testing.T) {
	env := setupCLIEnv(t)
	path := logging.LogFilePath(env.cfg.Paths.LogDir, time.Now())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := strings.Join([]string{
		`{"ts":"2026-10-16T09:00:00Z","level":"info","msg":"trim started","run_id":"aaaa1111"}`,
		`{"ts":"2026-10-16T09:00:01Z","level":"debug","msg":"stage started","run_id":"aaaa1111","stage":"analyze"}`,
		`{"ts":"2026-10-16T09:00:02Z","level":"info","msg":"keep intervals built","run_id":"aaaa1111","stage":"build","intervals":2}`,
		`{"ts":"2026-10-16T09:05:00Z","level":"info","msg":"trim started","run_id":"bbbb2222"}`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "logs", "--run", "aaaa")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected 2 entries, got %q", out)
	}
	if !strings.Contains(out, "[build] keep intervals built intervals=2") || strings.Contains(out, "bbbb2222") {
		t.Fatalf("unexpected logs output: %q", out)
	}

	out, _, err = runCLI(t, env.configPath, "logs", "--run", "cccc")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, "No matching log entries") {
		t.Fatalf("unexpected empty output: %q", out)
	}

	_, _, err = runCLI(t, env.configPath, "logs", "--level", "loud")
	if exitCode(err) != services.ExitUsage {
		t.Fatalf("bad level exit = %d (err %v)", exitCode(err), err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, services.ExitOK},
		{"nothing to drop", trim.ErrNothingToDrop, services.ExitOK},
		{"nothing to keep", trim.ErrNothingToKeep, services.ExitFailure},
		{"not found", services.Wrap(services.ErrNotFound, "detect", "stat input", "x", nil), services.ExitNotFound},
		{"external", services.Wrap(services.ErrExternalTool, "execute", "concat", "", errors.New("exit 1")), services.ExitExternalTool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}
