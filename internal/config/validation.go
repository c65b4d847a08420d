package config

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

var knownSections = map[string]bool{"windows": true, "linux": true, "macos": true}

// Validate checks the descriptor for mistakes that would only surface
// halfway through a setup run. Only the section for osName is checked in
// depth; other sections are not consulted.
func (c Config) Validate(osName string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateTarget()...)

	names := make([]string, 0, len(c.Config))
	for name := range c.Config {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !knownSections[name] {
			results = append(results, warning("unknown os section %q is ignored", name))
		}
	}

	section, ok := c.Config[osName]
	if !ok {
		return results
	}
	results = append(results, section.validatePrerequisites(osName)...)
	results = append(results, section.validatePackages(osName)...)
	results = append(results, section.validatePostInstall(osName)...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateTarget() []ValidationResult {
	target := strings.TrimSpace(c.OSTarget)
	if target == "" {
		return nil
	}
	if _, ok := c.Config[target]; !ok {
		return []ValidationResult{warning("os_target %q has no matching config section", target)}
	}
	return nil
}

func (s Section) validatePrerequisites(osName string) []ValidationResult {
	var results []ValidationResult
	seen := map[string]bool{}
	for _, p := range s.Prerequisites {
		name := strings.TrimSpace(p)
		if name == "" {
			results = append(results, failure("%s: empty prerequisite name", osName))
			continue
		}
		if seen[name] {
			results = append(results, warning("%s: prerequisite %q listed twice", osName, name))
		}
		seen[name] = true
	}
	return results
}

func (s Section) validatePackages(osName string) []ValidationResult {
	var results []ValidationResult
	for i, pkg := range s.Packages {
		if strings.TrimSpace(pkg.Library) == "" {
			results = append(results, failure("%s: package #%d has no library name", osName, i+1))
			continue
		}
		if osName == "windows" && pkg.Triplet == "" {
			results = append(results, failure("%s: package %q needs a vcpkg triplet", osName, pkg.Library))
		}
	}
	if osName == "windows" && len(s.Packages) > 0 && s.Toolchain == "" {
		results = append(results, warning("%s: packages are listed but no toolchain is set", osName))
	}
	return results
}

func (s Section) validatePostInstall(osName string) []ValidationResult {
	known := map[string]bool{}
	for _, id := range KnownPostInstall() {
		known[id] = true
	}
	var results []ValidationResult
	for _, id := range s.PostInstall {
		if !known[id] {
			results = append(results, warning("%s: post-install step %q has no definition", osName, id))
		}
	}
	return results
}

func warning(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "warning", Message: fmt.Sprintf(format, args...)}
}

func failure(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "error", Message: fmt.Sprintf(format, args...)}
}
