// Package deps reports whether the external helpers ischool shells out to
// are installed.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Requirement defines an external command ischool relies on.
type Requirement struct {
	Name        string
	Command     []string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
// The first word of each command must resolve on PATH; a second word that
// looks like a script file must exist.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     strings.Join(req.Command, " "),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		status.Available, status.Detail = check(req.Command)
		results = append(results, status)
	}
	return results
}

func check(command []string) (bool, string) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return false, "command not configured"
	}
	binary := strings.TrimSpace(command[0])
	if _, err := exec.LookPath(binary); err != nil {
		return false, fmt.Sprintf("binary %q not found", binary)
	}
	if len(command) > 1 && looksLikeScript(command[1]) {
		if _, err := os.Stat(command[1]); err != nil {
			return false, fmt.Sprintf("script %q not found", command[1])
		}
	}
	return true, ""
}

func looksLikeScript(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return false
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".py", ".sh", ".js", ".rb", ".pl":
		return true
	}
	return false
}
