// Package deps checks the external tools an export needs before any job is
// claimed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"pageturn/internal/config"
)

// Requirement defines an external dependency the exporter relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the tool checks for the given configuration. The
// browser is optional because the capture session can fall back to a managed
// download when no binary is installed.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.Encoder.FFmpegBinary, Description: "Stitches frames and audio into the final video"},
		{Name: "FFprobe", Command: cfg.Encoder.FFprobeBinary, Description: "Inspects audio and video containers"},
	}
	if browser := strings.TrimSpace(cfg.Renderer.BrowserBinary); browser != "" {
		reqs = append(reqs, Requirement{
			Name:        "Browser",
			Command:     browser,
			Description: "Renders book pages for frame capture",
			Optional:    true,
		})
	}
	return reqs
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
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of unavailable non-optional tools.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
