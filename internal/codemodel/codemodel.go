// Package codemodel reads build targets from the CMake file API
// (codemodel version 2).
package codemodel

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cpm/internal/errs"
	"cpm/internal/preset"
)

const (
	queryName   = "codemodel-v2"
	replyPrefix = "codemodel-v2-"
)

// Response is the subset of a codemodel-v2 reply cpm needs.
type Response struct {
	Configurations []Configuration `json:"configurations"`
}

type Configuration struct {
	Name    string   `json:"name"`
	Targets []Target `json:"targets"`
}

type Target struct {
	Name     string `json:"name"`
	JSONFile string `json:"jsonFile,omitempty"`
}

// QueryPath is <buildDir>/.cmake/api/v1/query/codemodel-v2.
func QueryPath(buildDir string) string {
	return filepath.Join(buildDir, ".cmake", "api", "v1", "query", queryName)
}

// ReplyDir is <buildDir>/.cmake/api/v1/reply.
func ReplyDir(buildDir string) string {
	return filepath.Join(buildDir, ".cmake", "api", "v1", "reply")
}

// EmitQuery asks CMake to write a codemodel reply on the next configure.
// The query is an empty marker directory; an existing one is left alone.
func EmitQuery(buildDir string) error {
	return os.MkdirAll(QueryPath(buildDir), 0o755)
}

// FindReplyFile returns the first codemodel-v2-*.json in replyDir in name
// order.
func FindReplyFile(replyDir string) (string, error) {
	entries, err := os.ReadDir(replyDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errs.New(errs.CodemodelReplyNotFound, replyDir)
		}
		return "", errs.Wrap(errs.CodemodelReplyNotFound, err, replyDir)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), replyPrefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", errs.New(errs.CodemodelReplyNotFound, replyDir)
	}
	sort.Strings(names)
	return filepath.Join(replyDir, names[0]), nil
}

// Parse decodes a codemodel-v2 reply.
func Parse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, errs.Wrap(errs.CodemodelParseFailed, err, "")
	}
	return resp, nil
}

// Targets lists target names. Multi-config generators report one
// configuration per build type, so only the one matching buildType is
// read; otherwise every configuration is flattened. Duplicates are dropped.
func (r Response) Targets(systemType, buildType string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, cfg := range r.Configurations {
		if preset.IsMultiConfig(systemType) && cfg.Name != buildType {
			continue
		}
		for _, target := range cfg.Targets {
			if target.Name == "" || seen[target.Name] {
				continue
			}
			seen[target.Name] = true
			out = append(out, target.Name)
		}
	}
	return out
}

// ReadTargets reads the reply CMake left in buildDir.
func ReadTargets(buildDir, systemType, buildType string) ([]string, error) {
	replyDir := ReplyDir(buildDir)
	if info, err := os.Stat(replyDir); err != nil || !info.IsDir() {
		return nil, errs.New(errs.CMakeProjectNotGenerated, buildDir)
	}
	file, err := FindReplyFile(replyDir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errs.Wrap(errs.CodemodelParseFailed, err, file)
	}
	resp, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return resp.Targets(systemType, buildType), nil
}
