package manifest

import (
	"strings"
	"unicode"
)

// TypeNameFor derives an enum type name from a directory or project name.
// Separators and case changes start a new word; every word is capitalized
// and anything that cannot appear in a class name is dropped.
//
//	"my-enums" -> "MyEnums", "traffic_light" -> "TrafficLight", "2fa" -> "T2fa"
func TypeNameFor(s string) string {
	var b strings.Builder
	upper := true
	var prev rune
	for _, r := range s {
		switch {
		case r == '-' || r == '_' || r == '.' || unicode.IsSpace(r):
			upper = true
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			// dropped
		default:
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				upper = true
			}
			if upper {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			upper = false
		}
		prev = r
	}
	name := b.String()
	if name != "" && unicode.IsDigit(rune(name[0])) {
		name = "T" + name
	}
	return name
}

// NamespacePath converts a dotted namespace to the slash-separated form
// used for class names and output directories: "com.x" -> "com/x".
func NamespacePath(ns string) string {
	return strings.Trim(strings.ReplaceAll(ns, ".", "/"), "/")
}
