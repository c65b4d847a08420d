package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCodeRanges(t *testing.T) {
	ranges := []struct {
		lo, hi int
		kinds  []Kind
	}{
		{1, 9, []Kind{NotSupportedOS}},
		{10, 20, []Kind{JSONFileNotFound, ConfigParseError, SettingsCorrupt, SettingsIO, InstallDescriptorWrite}},
		{21, 30, []Kind{EmptyCommand, ProjectNotInitialized, WorkingDirSameAsExePath, NoInitFlagSet, InvalidCacheKey, BuildTypeNotSet, BuildTypeBothSet, CmdCaughtStdErr, CommandFailed, CommandCancelled}},
		{31, 40, []Kind{PrerequisiteNotFound, PackageInstallFailed, PackageNotFound, UnsupportedLinuxDistribution, PostInstallFailed, PostInstallNoDefinition}},
		{41, 50, []Kind{ToolchainNotFound, GenerateProjectNtMsvcNoToolchain, InvalidSystemType, InvalidCleanCommand, CMakeProjectNotGenerated, CodemodelReplyNotFound, CodemodelParseFailed}},
	}
	for _, r := range ranges {
		for _, k := range r.kinds {
			if k.Code() < r.lo || k.Code() > r.hi {
				t.Errorf("%s code %d outside [%d,%d]", k, k.Code(), r.lo, r.hi)
			}
		}
	}
	if NotImplemented.Code() < 1000 {
		t.Fatalf("NotImplemented code %d", NotImplemented.Code())
	}
}

func TestEveryKindDeclared(t *testing.T) {
	for _, k := range allKinds() {
		if strings.HasPrefix(k.String(), "Kind(") {
			t.Errorf("kind %d has no name", k)
		}
		if k.Message() == "unknown error" {
			t.Errorf("kind %s has no message", k)
		}
	}
	if got := Kind(999).Severity(); got != Fatal {
		t.Fatalf("undeclared kind severity = %s, want fatal", got)
	}
}

func TestWarnings(t *testing.T) {
	warnings := map[Kind]bool{
		CmdCaughtStdErr:         true,
		PackageNotFound:         true,
		PostInstallNoDefinition: true,
	}
	for _, k := range allKinds() {
		want := Fatal
		if warnings[k] {
			want = Warning
		}
		if got := k.Severity(); got != want {
			t.Errorf("%s severity = %s, want %s", k, got, want)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(ToolchainNotFound, "VCPKG")
	if got := err.Error(); got != "E041 toolchain not found: VCPKG" {
		t.Fatalf("unexpected message %q", got)
	}

	cause := errors.New("permission denied")
	wrapped := Wrap(SettingsIO, cause, "/tmp/settings.json")
	if !errors.Is(wrapped, cause) {
		t.Fatal("expected wrapped error to unwrap to cause")
	}
	if !strings.HasSuffix(wrapped.Error(), "permission denied") {
		t.Fatalf("expected cause in message, got %q", wrapped.Error())
	}
}

func TestIsAndKindOf(t *testing.T) {
	err := fmt.Errorf("setup: %w", New(PrerequisiteNotFound, "cmake"))

	if !Is(err, PrerequisiteNotFound) {
		t.Fatal("expected Is to match through wrapping")
	}
	if Is(err, PackageNotFound) {
		t.Fatal("unexpected match for different kind")
	}
	if !errors.Is(err, &Error{Kind: PrerequisiteNotFound}) {
		t.Fatal("expected errors.Is to match kind sentinel")
	}
	if errors.Is(err, &Error{Kind: PrerequisiteNotFound, Detail: "git"}) {
		t.Fatal("sentinel with different detail should not match")
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatal("plain error should have no kind")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("boom"), 1},
		{"classified", New(InvalidCleanCommand, "x"), 44},
		{"wrapped", fmt.Errorf("build: %w", New(BuildTypeNotSet, "")), 26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Fatal("nil is not fatal")
	}
	if !IsFatal(errors.New("plain")) {
		t.Fatal("unclassified errors are fatal")
	}
	if IsFatal(New(PostInstallNoDefinition, "foo")) {
		t.Fatal("PostInstallNoDefinition is a warning")
	}
	if !IsFatal(New(PostInstallFailed, "vcpkg_integrate_install")) {
		t.Fatal("PostInstallFailed is fatal")
	}
}
