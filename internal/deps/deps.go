package deps

import (
	"fmt"
	"strings"
)

// Requirement defines an external tool IntoHear relies on.
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
	Resolved    string
	Description string
	Optional    bool
	Available   bool
	Detail      string
	Hint        string
}

// CheckBinaries evaluates the provided requirements with locator and reports availability.
func CheckBinaries(locator Locator, goos string, requirements []Requirement) []Status {
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
		resolved, ok := locator.Lookup(cmd)
		if !ok {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			status.Hint = InstallHint(cmd, goos)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Resolved = resolved
		results = append(results, status)
	}
	return results
}
