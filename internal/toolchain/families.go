package toolchain

import (
	"sort"
	"strings"
)

// Family is a package-manager toolchain cpm can hand to CMake.
type Family struct {
	Name string
	// ToolchainFile is the CMake toolchain file relative to the root.
	ToolchainFile []string
}

// Display is the upper-cased family name used in messages.
func (f Family) Display() string {
	return strings.ToUpper(f.Name)
}

var families = map[string]Family{
	"vcpkg": {
		Name:          "vcpkg",
		ToolchainFile: []string{"scripts", "buildsystems", "vcpkg.cmake"},
	},
}

// Lookup returns the family whose root directory is named exactly name.
func Lookup(name string) (Family, bool) {
	f, ok := families[name]
	return f, ok
}

// Families lists the recognised families by name.
func Families() []Family {
	out := make([]Family, 0, len(families))
	for _, f := range families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names lists the recognised family names, for messages and help text.
func Names() []string {
	fams := Families()
	out := make([]string, len(fams))
	for i, f := range fams {
		out[i] = f.Name
	}
	return out
}
