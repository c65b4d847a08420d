package settings

import (
	"reflect"
	"testing"

	"cpm/internal/errs"
)

func TestKeysCoverEveryField(t *testing.T) {
	typ := reflect.TypeOf(Settings{})
	if got, want := len(Keys()), typ.NumField(); got != want {
		t.Fatalf("key table has %d entries, Settings has %d fields", got, want)
	}
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("json")
		if _, err := ParseKey(tag); err != nil {
			t.Errorf("field %s (%s) missing from key table", typ.Field(i).Name, tag)
		}
	}
}

func TestParseKeyUnknown(t *testing.T) {
	if _, err := ParseKey("nope"); !errs.Is(err, errs.InvalidCacheKey) {
		t.Fatalf("expected InvalidCacheKey, got %v", err)
	}
}

func TestGetSet(t *testing.T) {
	var s Settings

	if err := s.Set(KeyBuildDir, "/src/build"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(KeyBuildDir); got != "/src/build" {
		t.Fatalf("build_dir = %q", got)
	}

	if err := s.Set(KeyUsingToolchain, "true"); err != nil {
		t.Fatal(err)
	}
	if !s.UsingToolchain {
		t.Fatal("using_toolchain not set")
	}
	if err := s.Set(KeyUsingToolchain, "maybe"); err == nil {
		t.Fatal("expected bool parse error")
	}

	if err := s.Set(KeyCMakeTargets, `["app","tests"]`); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(KeyCMakeTargets); got != `["app","tests"]` {
		t.Fatalf("cmake_targets = %s", got)
	}

	if err := s.Set(KeyCMakeTargets, "a, b,,c"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s.CMakeTargets, []string{"a", "b", "c"}) {
		t.Fatalf("comma list parsed as %v", s.CMakeTargets)
	}

	if got, _ := s.Get(KeyLastCommand); got != "[]" {
		t.Fatalf("nil list should render as [], got %s", got)
	}

	if _, err := s.Get(Key("bogus")); !errs.Is(err, errs.InvalidCacheKey) {
		t.Fatalf("expected InvalidCacheKey, got %v", err)
	}
	if err := s.Set(Key("bogus"), "x"); !errs.Is(err, errs.InvalidCacheKey) {
		t.Fatalf("expected InvalidCacheKey, got %v", err)
	}
}
