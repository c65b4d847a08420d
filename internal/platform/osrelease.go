package platform

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// ReadOSRelease parses an os-release file into its KEY=value pairs.
func ReadOSRelease(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseOSRelease(data), nil
}

func parseOSRelease(data []byte) map[string]string {
	fields := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return fields
}

// Release describes the host release used to namespace install prefixes:
// "<ID>-<VERSION_ID>" from os-release when available, otherwise
// "<os>-<arch>".
func Release() string {
	osName := HostOS()
	if osName == Linux {
		if fields, err := ReadOSRelease(osReleasePath); err == nil {
			if r := releaseFromFields(fields); r != "" {
				return r
			}
		}
	}
	return osName + "-" + runtime.GOARCH
}

func releaseFromFields(fields map[string]string) string {
	id := fields["ID"]
	if id == "" {
		return ""
	}
	if v := fields["VERSION_ID"]; v != "" {
		return id + "-" + v
	}
	return id
}
