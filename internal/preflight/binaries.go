package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"stillcut/internal/config"
)

// Requirement defines an external binary stillcut relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a binary.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// Result converts a binary status into a check result. Missing optional
// binaries pass.
func (s Status) Result() Result {
	switch {
	case s.Available:
		return Result{Name: s.Name, Passed: true, Detail: s.Path}
	case s.Optional:
		return Result{Name: s.Name, Passed: true, Detail: s.Detail + " (optional)"}
	default:
		return Result{Name: s.Name, Detail: s.Detail}
	}
}

// ToolRequirements lists the binaries the configured pipeline invokes.
func ToolRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Runs the static-frame analyzer and writes the output",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Reads keyframes, duration and stream layout",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Path = path
		results = append(results, status)
	}
	return results
}

// MissingRequired returns an error naming every unavailable required binary.
func MissingRequired(statuses []Status) error {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Detail)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing dependencies: %s", strings.Join(missing, "; "))
}
