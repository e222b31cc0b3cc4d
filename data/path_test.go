package data

import (
	"errors"
	"testing"

	vfserrors "github.com/mwantia/s3vfs/data/errors"
)

func mustParse(t *testing.T, first string, more ...string) PosixPath {
	t.Helper()

	p, err := ParsePosixPath(first, more...)
	if err != nil {
		t.Fatalf("ParsePosixPath(%q, %q) failed: %v", first, more, err)
	}
	return p
}

func TestParsePosixPath_Flags(t *testing.T) {
	tests := []struct {
		input     string
		absolute  bool
		directory bool
		root      bool
		segments  int
		str       string
	}{
		{"/", true, true, true, 0, "/"},
		{"///", true, true, true, 0, "/"},
		{"", false, false, false, 0, ""},
		{"a", false, false, false, 1, "a"},
		{"a/", false, true, false, 1, "a/"},
		{"/a/b", true, false, false, 2, "/a/b"},
		{"//a///b//", true, true, false, 2, "/a/b/"},
		{"a/./b/../c", false, false, false, 5, "a/./b/../c"},
		{"a/..", false, true, false, 2, "a/.."},
		{".", false, true, false, 1, "."},
	}

	for _, tt := range tests {
		p := mustParse(t, tt.input)

		if p.IsAbsolute() != tt.absolute {
			t.Errorf("%q: expected absolute=%v", tt.input, tt.absolute)
		}
		if p.IsDirectory() != tt.directory {
			t.Errorf("%q: expected directory=%v", tt.input, tt.directory)
		}
		if p.IsRoot() != tt.root {
			t.Errorf("%q: expected root=%v", tt.input, tt.root)
		}
		if p.Len() != tt.segments {
			t.Errorf("%q: expected %d segments, got %d", tt.input, tt.segments, p.Len())
		}
		if p.String() != tt.str {
			t.Errorf("%q: expected string %q, got %q", tt.input, tt.str, p.String())
		}
	}
}

func TestParsePosixPath_Joining(t *testing.T) {
	p := mustParse(t, "/dir1", "dir2/", "", "file")
	if p.String() != "/dir1/dir2/file" {
		t.Errorf("expected '/dir1/dir2/file', got %q", p.String())
	}

	p = mustParse(t, "dir", "sub/")
	if !p.IsDirectory() {
		t.Errorf("expected trailing separator of last element to be kept, got %q", p)
	}

	for _, first := range []string{"", "   "} {
		if _, err := ParsePosixPath(first, "more"); !errors.Is(err, vfserrors.ErrInvalidPath) {
			t.Errorf("expected ErrInvalidPath for blank first element %q, got %v", first, err)
		}
	}

	if _, err := ParsePosixPath(""); err != nil {
		t.Errorf("expected empty path without more elements to parse, got %v", err)
	}
}

func TestPosixPath_Normalize(t *testing.T) {
	tests := map[string]string{
		"/":              "/",
		"":               "",
		"a/./b":          "a/b",
		"a/b/../c":       "a/c",
		"../a":           "../a",
		"../../a/..":     "../../",
		"a/..":           "",
		"/..":            "/",
		"/a/../..":       "/",
		"/a/b/./":        "/a/b/",
		"/a/b/..":        "/a/",
		"./a/./b/./c/.":  "a/b/c/",
		"a/b/../../../x": "../x",
	}

	for input, expected := range tests {
		got := mustParse(t, input).Normalize()
		if got.String() != expected {
			t.Errorf("Normalize(%q) = %q, expected %q", input, got.String(), expected)
		}
	}
}

func TestPosixPath_NormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"/", "", ".", "..", "a/../..", "../../a/..", "/a/./b/../../..",
		"x/y/z/", "./././", "a/b/c/../../d/.", "/../x/", "..//..//a",
	}

	for _, input := range inputs {
		once := mustParse(t, input).Normalize()
		twice := once.Normalize()
		if !once.Equal(twice) || once.String() != twice.String() {
			t.Errorf("Normalize not idempotent for %q: %q vs %q", input, once, twice)
		}
	}
}

func TestPosixPath_Resolve(t *testing.T) {
	base := mustParse(t, "/a/b/")

	tests := []struct {
		other    string
		expected string
	}{
		{"/x", "/x"},
		{"", "/a/b/"},
		{"c", "/a/b/c"},
		{"c/", "/a/b/c/"},
		{"../c", "/a/b/../c"},
	}

	for _, tt := range tests {
		got := base.Resolve(mustParse(t, tt.other))
		if got.String() != tt.expected {
			t.Errorf("Resolve(%q) = %q, expected %q", tt.other, got, tt.expected)
		}
	}

	relative := mustParse(t, "a").Resolve(mustParse(t, "b/"))
	if relative.String() != "a/b/" || relative.IsAbsolute() {
		t.Errorf("expected relative 'a/b/', got %q", relative)
	}
}

func TestPosixPath_Relativize(t *testing.T) {
	tests := []struct {
		base, other, expected string
	}{
		{"/a/b", "/a/b/c/d", "c/d"},
		{"/a/b", "/a/x", "../x"},
		{"/a/b/c", "/a", "../../"},
		{"/a/b", "/a/b", ""},
		{"/", "/a/b/", "a/b/"},
		{"a/b", "c", "../../c"},
	}

	for _, tt := range tests {
		got, err := mustParse(t, tt.base).Relativize(mustParse(t, tt.other))
		if err != nil {
			t.Fatalf("Relativize(%q, %q) failed: %v", tt.base, tt.other, err)
		}
		if got.String() != tt.expected {
			t.Errorf("Relativize(%q, %q) = %q, expected %q", tt.base, tt.other, got, tt.expected)
		}
		if got.IsAbsolute() {
			t.Errorf("Relativize(%q, %q) should be relative", tt.base, tt.other)
		}
	}

	if _, err := mustParse(t, "/a").Relativize(mustParse(t, "b")); !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected ErrInvalid for mixed absoluteness, got %v", err)
	}
}

func TestPosixPath_ResolveRelativizeInverse(t *testing.T) {
	bases := []string{"/", "/a", "/a/b/", "x", "x/y/"}
	others := []string{"c", "c/d/", "../e", "./f", "g/../h"}

	for _, b := range bases {
		for _, o := range others {
			base := mustParse(t, b)
			resolved := base.Resolve(mustParse(t, o))

			rel, err := base.Relativize(resolved)
			if err != nil {
				t.Fatalf("Relativize(%q, %q) failed: %v", b, resolved, err)
			}

			back := base.Resolve(rel)
			if !back.Canonical().Equal(resolved.Canonical()) {
				t.Errorf("base=%q other=%q: %q does not round trip to %q", b, o, back, resolved)
			}
		}
	}
}

func TestPosixPath_StartsEndsWith(t *testing.T) {
	p := mustParse(t, "/a/b/c")

	if !p.StartsWith(mustParse(t, "/a/b")) || !p.StartsWith(mustParse(t, "/")) {
		t.Error("expected /a/b/c to start with /a/b and /")
	}
	if p.StartsWith(mustParse(t, "a/b")) {
		t.Error("absolute path must not start with a relative path")
	}
	if p.StartsWith(mustParse(t, "/a/bc")) {
		t.Error("StartsWith must compare whole segments")
	}

	if !p.EndsWith(mustParse(t, "b/c")) || !p.EndsWith(mustParse(t, "/a/b/c")) {
		t.Error("expected /a/b/c to end with b/c and itself")
	}
	if p.EndsWith(mustParse(t, "/b/c")) {
		t.Error("absolute suffix must match the whole path")
	}
	if p.EndsWith(mustParse(t, "")) {
		t.Error("non-empty path must not end with the empty path")
	}
}

func TestPosixPath_SubpathParentFileName(t *testing.T) {
	p := mustParse(t, "/a/b/c")

	sub, err := p.Subpath(0, 2)
	if err != nil {
		t.Fatalf("Subpath failed: %v", err)
	}
	if sub.String() != "a/b/" {
		t.Errorf("expected 'a/b/', got %q", sub)
	}

	sub, err = p.Subpath(1, 3)
	if err != nil {
		t.Fatalf("Subpath failed: %v", err)
	}
	if sub.String() != "b/c" {
		t.Errorf("expected 'b/c', got %q", sub)
	}

	for _, bounds := range [][2]int{{-1, 1}, {0, 0}, {2, 1}, {0, 4}} {
		if _, err := p.Subpath(bounds[0], bounds[1]); !errors.Is(err, vfserrors.ErrInvalid) {
			t.Errorf("Subpath(%d, %d): expected ErrInvalid, got %v", bounds[0], bounds[1], err)
		}
	}

	parent, ok := p.Parent()
	if !ok || parent.String() != "/a/b/" {
		t.Errorf("expected parent '/a/b/', got %q", parent)
	}

	parent, ok = mustParse(t, "/a").Parent()
	if !ok || !parent.IsRoot() {
		t.Errorf("expected root parent, got %q", parent)
	}

	if _, ok := mustParse(t, "a").Parent(); ok {
		t.Error("single relative segment must not have a parent")
	}

	name, ok := mustParse(t, "/a/b/").FileName()
	if !ok || name.String() != "b/" {
		t.Errorf("expected file name 'b/', got %q", name)
	}

	if _, ok := mustParse(t, "/").FileName(); ok {
		t.Error("root must not have a file name")
	}
}

func TestPosixPath_Canonical(t *testing.T) {
	if !mustParse(t, "dir1/").Canonical().Equal(mustParse(t, "/dir1/").Canonical()) {
		t.Error("expected 'dir1/' and '/dir1/' to share a canonical form")
	}

	if mustParse(t, "/dir1").Canonical().Equal(mustParse(t, "/dir1/").Canonical()) {
		t.Error("a file key and a directory key must never be equal")
	}

	if !mustParse(t, "/a/b/../c").Canonical().Equal(mustParse(t, "a/./c").Canonical()) {
		t.Error("expected equivalent paths to share a canonical form")
	}
}
