// Package errs defines the numbered error taxonomy shared by every cpm
// component. Codes double as process exit statuses.
package errs

import (
	"errors"
	"fmt"
	"sort"
)

// Severity tells callers whether an error aborts the current command.
type Severity int

const (
	Fatal Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "fatal"
}

// Kind identifies a class of failure. The numeric value is the public code.
type Kind int

// OS errors (1-9).
const (
	NotSupportedOS Kind = 1
)

// Descriptor and JSON errors (10-20).
const (
	JSONFileNotFound       Kind = 10
	ConfigParseError       Kind = 11
	SettingsCorrupt        Kind = 12
	SettingsIO             Kind = 13
	InstallDescriptorWrite Kind = 14
)

// Logic and lifecycle errors (21-30).
const (
	EmptyCommand            Kind = 21
	ProjectNotInitialized   Kind = 22
	WorkingDirSameAsExePath Kind = 23
	NoInitFlagSet           Kind = 24
	InvalidCacheKey         Kind = 25
	BuildTypeNotSet         Kind = 26
	BuildTypeBothSet        Kind = 27
	CmdCaughtStdErr         Kind = 28
	CommandFailed           Kind = 29
	CommandCancelled        Kind = 30
)

// Setup and dependency errors (31-40).
const (
	PrerequisiteNotFound         Kind = 31
	PackageInstallFailed         Kind = 32
	PackageNotFound              Kind = 33
	UnsupportedLinuxDistribution Kind = 34
	PostInstallFailed            Kind = 35
	PostInstallNoDefinition      Kind = 36
)

// Build and toolchain errors (41-50).
const (
	ToolchainNotFound                Kind = 41
	GenerateProjectNtMsvcNoToolchain Kind = 42
	InvalidSystemType                Kind = 43
	InvalidCleanCommand              Kind = 44
	CMakeProjectNotGenerated         Kind = 45
	CodemodelReplyNotFound           Kind = 46
	CodemodelParseFailed             Kind = 47
)

const NotImplemented Kind = 1000

type kindInfo struct {
	name     string
	message  string
	severity Severity
}

var kinds = map[Kind]kindInfo{
	NotSupportedOS: {"NotSupportedOS", "operating system not supported", Fatal},

	JSONFileNotFound:       {"JSONFileNotFound", "install descriptor not found", Fatal},
	ConfigParseError:       {"ConfigParseError", "install descriptor could not be parsed", Fatal},
	SettingsCorrupt:        {"SettingsCorrupt", "settings file is malformed", Fatal},
	SettingsIO:             {"SettingsIO", "settings file could not be written", Fatal},
	InstallDescriptorWrite: {"InstallDescriptorWrite", "install descriptor could not be written", Fatal},

	EmptyCommand:            {"EmptyCommand", "no command provided", Fatal},
	ProjectNotInitialized:   {"ProjectNotInitialized", "project is not initialized, run cpm init", Fatal},
	WorkingDirSameAsExePath: {"WorkingDirSameAsExePath", "working directory must differ from the cpm executable directory", Fatal},
	NoInitFlagSet:           {"NoInitFlagSet", "init is disabled when invoked through the project entrypoint", Fatal},
	InvalidCacheKey:         {"InvalidCacheKey", "unknown settings key", Fatal},
	BuildTypeNotSet:         {"BuildTypeNotSet", "build type not set, pass --debug or --release", Fatal},
	BuildTypeBothSet:        {"BuildTypeBothSet", "--debug and --release are mutually exclusive", Fatal},
	CmdCaughtStdErr:         {"CmdCaughtStdErr", "command wrote to stderr", Warning},
	CommandFailed:           {"CommandFailed", "command failed", Fatal},
	CommandCancelled:        {"CommandCancelled", "command cancelled", Fatal},

	PrerequisiteNotFound:         {"PrerequisiteNotFound", "prerequisite not found", Fatal},
	PackageInstallFailed:         {"PackageInstallFailed", "package install failed", Fatal},
	PackageNotFound:              {"PackageNotFound", "package not installed, install it manually", Warning},
	UnsupportedLinuxDistribution: {"UnsupportedLinuxDistribution", "linux distribution not supported", Fatal},
	PostInstallFailed:            {"PostInstallFailed", "post-install step failed", Fatal},
	PostInstallNoDefinition:      {"PostInstallNoDefinition", "post-install step has no definition", Warning},

	ToolchainNotFound:                {"ToolchainNotFound", "toolchain not found", Fatal},
	GenerateProjectNtMsvcNoToolchain: {"GenerateProjectNtMsvcNoToolchain", "nt/msvc generation requires a toolchain file", Fatal},
	InvalidSystemType:                {"InvalidSystemType", "invalid cmake system type", Fatal},
	InvalidCleanCommand:              {"InvalidCleanCommand", "invalid clean command", Fatal},
	CMakeProjectNotGenerated:         {"CMakeProjectNotGenerated", "cmake project has not been generated", Fatal},
	CodemodelReplyNotFound:           {"CodemodelReplyNotFound", "codemodel reply not found", Fatal},
	CodemodelParseFailed:             {"CodemodelParseFailed", "codemodel reply could not be parsed", Fatal},

	NotImplemented: {"NotImplemented", "not implemented", Fatal},
}

// Code returns the numeric error code.
func (k Kind) Code() int { return int(k) }

// Severity returns the declared severity. Unknown kinds are fatal.
func (k Kind) Severity() Severity {
	if info, ok := kinds[k]; ok {
		return info.severity
	}
	return Fatal
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Message is the human readable summary of the kind.
func (k Kind) Message() string {
	if info, ok := kinds[k]; ok {
		return info.message
	}
	return "unknown error"
}

// allKinds returns every declared kind in code order.
func allKinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Error is a classified error. Detail names the offending value (a tool,
// a path, a character) and Err is the optional underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("E%03d %s", e.Kind.Code(), e.Kind.Message())
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind so errors.Is works against
// sentinel values such as &Error{Kind: ToolchainNotFound}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Detail == "" || t.Detail == e.Detail)
}

// New builds a classified error.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf builds a classified error with a formatted detail.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err still yields a non-nil *Error.
func Wrap(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsFatal reports whether err should abort execution. Unclassified errors
// are fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	k, ok := KindOf(err)
	if !ok {
		return true
	}
	return k.Severity() == Fatal
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if k, ok := KindOf(err); ok {
		return k.Code()
	}
	return 1
}
