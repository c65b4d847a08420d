package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"cpm/internal/errs"
)

func TestDefault(t *testing.T) {
	cfg, err := Parse(DefaultJSON())
	if err != nil {
		t.Fatal(err)
	}
	win, err := cfg.Section("windows")
	if err != nil {
		t.Fatal(err)
	}
	if win.Toolchain != "vcpkg" {
		t.Fatalf("expected vcpkg toolchain, got %q", win.Toolchain)
	}
	if !reflect.DeepEqual(win.PostInstall, []string{PostInstallVcpkgIntegrate}) {
		t.Fatalf("unexpected post install %v", win.PostInstall)
	}
	if _, err := cfg.Section("linux"); err != nil {
		t.Fatal(err)
	}
	for _, osName := range []string{"windows", "linux"} {
		if results := cfg.Validate(osName); HasErrors(results) {
			t.Fatalf("default descriptor should validate for %s, got %v", osName, results)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpm_install.json")
	body := `{
  "os_target": "windows",
  "config": {
    "windows": {
      "prerequisites": ["cmake"],
      "toolchain": "vcpkg",
      "packages": [{"library": "fmt", "triplet": "x64-windows"}, "zlib:x64-windows-static"],
      "post_install": ["vcpkg_integrate_install"]
    },
    "linux": {
      "dependencies": ["cmake", "ninja"],
      "libraries": ["libfmt-dev"],
      "instructions": ["add user to the docker group"]
    }
  }
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	win, _ := cfg.Section("windows")
	want := []Package{{Library: "fmt", Triplet: "x64-windows"}, {Library: "zlib", Triplet: "x64-windows-static"}}
	if !reflect.DeepEqual(win.Packages, want) {
		t.Fatalf("windows packages = %+v", win.Packages)
	}

	linux, _ := cfg.Section("Linux")
	if !reflect.DeepEqual(linux.Prerequisites, []string{"cmake", "ninja"}) {
		t.Fatalf("linux prerequisites = %v", linux.Prerequisites)
	}
	if len(linux.Packages) != 1 || linux.Packages[0].Library != "libfmt-dev" || linux.Packages[0].Triplet != "" {
		t.Fatalf("linux packages = %+v", linux.Packages)
	}
	if len(linux.Instructions) != 1 {
		t.Fatalf("linux instructions = %v", linux.Instructions)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpm_install.yaml")
	body := `os_target: linux
config:
  linux:
    prerequisites: [cmake, git]
    packages:
      - library: fmt
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OSTarget != "linux" {
		t.Fatalf("os_target = %q", cfg.OSTarget)
	}
	linux, err := cfg.Section("linux")
	if err != nil {
		t.Fatal(err)
	}
	if len(linux.Packages) != 1 || linux.Packages[0].Library != "fmt" {
		t.Fatalf("packages = %+v", linux.Packages)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json")); !errs.Is(err, errs.JSONFileNotFound) {
		t.Fatalf("expected JSONFileNotFound, got %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"config": [}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errs.Is(err, errs.ConfigParseError) {
		t.Fatalf("expected ConfigParseError, got %v", err)
	}

	badYAML := filepath.Join(dir, "bad.yml")
	if err := os.WriteFile(badYAML, []byte("config: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(badYAML); !errs.Is(err, errs.ConfigParseError) {
		t.Fatalf("expected ConfigParseError for yaml, got %v", err)
	}
}

func TestSectionMissing(t *testing.T) {
	cfg := Config{Config: map[string]Section{}}
	if _, err := cfg.Section("macos"); !errs.Is(err, errs.ConfigParseError) {
		t.Fatalf("expected ConfigParseError, got %v", err)
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpm_install.json")

	created, err := WriteDefault(path)
	if err != nil || !created {
		t.Fatalf("WriteDefault = %v, %v", created, err)
	}
	if err := os.WriteFile(path, []byte(`{"os_target":"linux"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	created, err = WriteDefault(path)
	if err != nil || created {
		t.Fatalf("second WriteDefault = %v, %v", created, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `{"os_target":"linux"}` {
		t.Fatal("existing descriptor was overwritten")
	}
}

func TestPackageString(t *testing.T) {
	if got := (Package{Library: "fmt", Triplet: "x64-windows"}).String(); got != "fmt:x64-windows" {
		t.Fatalf("String = %q", got)
	}
	if got := (Package{Library: "fmt"}).String(); got != "fmt" {
		t.Fatalf("String = %q", got)
	}
}
