package common

import (
	"path"
	"reflect"
	"strings"
)

// UnknownStr is the String() fallback for out-of-range enum values.
const UnknownStr = "unknown"

// PkgAlias returns the package alias (last element of path) for a given package path.
// Returns empty string if pkgPath is empty.
func PkgAlias(pkgPath string) string {
	if pkgPath == "" {
		return ""
	}

	return path.Base(pkgPath)
}

// TypeName renders t for messages: "train.Train", "*train.Modifiable",
// "foo.SubValue[string,int]". Unnamed types use reflect's own spelling.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	if t.Kind() == reflect.Pointer && t.Name() == "" {
		return "*" + TypeName(t.Elem())
	}

	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}

	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		// generic instantiations spell their arguments with full import paths
		name = name[:i] + shortenArgs(name[i:])
	}

	return PkgAlias(t.PkgPath()) + "." + name
}

func shortenArgs(args string) string {
	var b strings.Builder

	start := 0
	for i, r := range args {
		switch r {
		case '[', ']', ',', '*':
			b.WriteString(shortenQualified(args[start:i]))
			b.WriteRune(r)
			start = i + 1
		}
	}

	b.WriteString(shortenQualified(args[start:]))

	return b.String()
}

// shortenQualified turns "example.com/pkg/foo.Bar" into "foo.Bar".
func shortenQualified(s string) string {
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}

	return s
}
