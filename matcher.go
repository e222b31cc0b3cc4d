package s3vfs

import (
	"path"
	"regexp"
	"strings"

	"github.com/mwantia/s3vfs/data/errors"
)

// PathMatcher matches paths against a pattern.
type PathMatcher interface {
	Match(p *Path) bool
}

type PathMatcherFunc func(p *Path) bool

func (f PathMatcherFunc) Match(p *Path) bool {
	return f(p)
}

// PathMatcher compiles "glob:<pattern>" or "regex:<pattern>". Patterns are
// matched against the string form of a path.
func (fs *FileSystem) PathMatcher(syntaxAndPattern string) (PathMatcher, error) {
	syntax, pattern, ok := strings.Cut(syntaxAndPattern, ":")
	if !ok || pattern == "" {
		return nil, errors.Invalid("pattern '%s' must have the form syntax:pattern", syntaxAndPattern)
	}

	switch strings.ToLower(syntax) {
	case "glob":
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, errors.Invalid("invalid glob '%s': %v", pattern, err)
		}
		return PathMatcherFunc(func(p *Path) bool {
			matched, _ := path.Match(pattern, p.String())
			return matched
		}), nil

	case "regex":
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, errors.Invalid("invalid regex '%s': %v", pattern, err)
		}
		return PathMatcherFunc(func(p *Path) bool {
			return re.MatchString(p.String())
		}), nil
	}

	return nil, errors.Unsupported("pattern syntax '" + syntax + "'")
}
