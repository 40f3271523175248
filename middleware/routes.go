package middleware

import (
	"regexp"
	"strings"
)

// routeSet is a compiled list of glob-style path patterns. Patterns are
// compiled once at middleware construction; matching per request is a walk
// over anchored regexps.
type routeSet struct {
	patterns []*regexp.Regexp
}

// compileRoutes converts glob patterns to full-string regexps. The only
// metacharacter is '*', matching any run of characters (including '/').
func compileRoutes(globs []string) (*routeSet, error) {
	set := &routeSet{patterns: make([]*regexp.Regexp, 0, len(globs))}
	for _, glob := range globs {
		re, err := regexp.Compile(globToRegexp(glob))
		if err != nil {
			return nil, err
		}
		set.patterns = append(set.patterns, re)
	}
	return set, nil
}

func (s *routeSet) matches(path string) bool {
	if s == nil {
		return false
	}
	for _, re := range s.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func globToRegexp(glob string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, segment := range strings.Split(glob, "*") {
		if segment != "" {
			b.WriteString(regexp.QuoteMeta(segment))
		}
		b.WriteString(".*")
	}
	pattern := strings.TrimSuffix(b.String(), ".*")
	return pattern + "$"
}
