// Package lang maps file paths to the languages the sampler knows about.
package lang

import (
	"fmt"
	"path"
	"slices"
	"strings"
)

// Language is a language tag derived from a file extension
type Language string

const (
	// All is only meaningful in configuration and never derived from a path.
	All        Language = "all"
	Unknown    Language = "unknown"
	CPP        Language = "cpp"
	Java       Language = "java"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Go         Language = "go"
	Rust       Language = "rust"
)

var known = []Language{CPP, Java, Python, JavaScript, TypeScript, Go, Rust, Unknown}

var extensions = map[string]Language{
	".cpp": CPP,
	".cc":  CPP,
	".c":   CPP,
	".h":   CPP,
	".hpp": CPP,
	".cxx": CPP,
	".hxx": CPP,
	".c++": CPP,
	".h++": CPP,
	".hh":  CPP,
	".hcc": CPP,
	".inl": CPP,
	".ipp": CPP,
	".tcc": CPP,
	".tpp": CPP,
	".txx": CPP,

	".java": Java,
	".py":   Python,

	".mjs": JavaScript,
	".js":  JavaScript,
	".cjs": JavaScript,
	".jsx": JavaScript,

	".ts":  TypeScript,
	".tsx": TypeScript,

	".go": Go,
	".rs": Rust,
}

// String returns the string representation of the language
func (l Language) String() string {
	return string(l)
}

// Detect returns the language of a slash separated tree path. Extensions are
// case sensitive: "foo.H" is unknown.
func Detect(p string) Language {
	if l, ok := extensions[path.Ext(p)]; ok {
		return l
	}
	return Unknown
}

// Known returns every language a path can be tagged with, unknown included.
func Known() []Language {
	return slices.Clone(known)
}

// Parse validates a language name as accepted on the command line.
// Unknown is rejected since it can never be selected.
func Parse(s string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if l == All || (l != Unknown && slices.Contains(known, l)) {
		return l, nil
	}
	return "", fmt.Errorf("unsupported language %q", s)
}

// ParseList parses a list of language names, accepting comma separated values.
func ParseList(values []string) ([]Language, error) {
	var out []Language
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			l, err := Parse(part)
			if err != nil {
				return nil, err
			}
			if !slices.Contains(out, l) {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

// Set is a language restriction as configured by the user.
type Set []Language

// Unrestricted reports whether the set selects every language.
func (s Set) Unrestricted() bool {
	return len(s) == 0 || slices.Contains(s, All)
}

// Allows reports whether l passes the restriction. Unknown never does.
func (s Set) Allows(l Language) bool {
	if l == Unknown {
		return false
	}
	return s.Unrestricted() || slices.Contains(s, l)
}

// Strings returns the language names of the set.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, l := range s {
		out[i] = l.String()
	}
	return out
}
