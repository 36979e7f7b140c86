package enumgen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/chazu/enumforge/pkg/classfile"
)

// TypeSpec describes one enumerated type. It is immutable once built.
type TypeSpec struct {
	namespace string // internal form, e.g. "com/x"
	typeName  string
	elements  []string
}

// NewTypeSpec validates and copies its inputs. The namespace may use dots
// or slashes as separators; an empty namespace selects the unnamed package.
func NewTypeSpec(namespace, typeName string, elements []string) (*TypeSpec, error) {
	ns := strings.Trim(strings.ReplaceAll(namespace, ".", "/"), "/")
	if ns == "" && namespace != "" {
		return nil, fmt.Errorf("%w: namespace %q has no segments", ErrConfiguration, namespace)
	}
	if ns != "" {
		for _, seg := range strings.Split(ns, "/") {
			if err := checkName(seg); err != nil {
				return nil, fmt.Errorf("%w: namespace %q: %v", ErrConfiguration, namespace, err)
			}
		}
	}
	if err := checkName(typeName); err != nil {
		return nil, fmt.Errorf("%w: type name: %v", ErrConfiguration, err)
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s has no elements", ErrConfiguration, typeName)
	}

	seen := make(map[string]int, len(elements))
	for i, name := range elements {
		if err := checkName(name); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrConfiguration, i, err)
		}
		if j, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: element %q appears at %d and %d", ErrConfiguration, name, j, i)
		}
		seen[name] = i
	}

	return &TypeSpec{
		namespace: ns,
		typeName:  typeName,
		elements:  append([]string(nil), elements...),
	}, nil
}

// checkName accepts Java identifiers: a letter, '_' or '$' followed by
// letters, digits, '_' or '$'. Keywords are not checked.
func checkName(s string) error {
	if s == "" {
		return fmt.Errorf("empty name")
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%q is not valid UTF-8", s)
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return fmt.Errorf("%q: %q is not allowed at offset %d", s, r, i)
		}
	}
	return nil
}

// Namespace returns the namespace in internal (slash-separated) form.
func (s *TypeSpec) Namespace() string { return s.namespace }

// TypeName returns the simple name of the enum type.
func (s *TypeSpec) TypeName() string { return s.typeName }

// Len returns the number of elements.
func (s *TypeSpec) Len() int { return len(s.elements) }

// Element returns the name of the element with the given ordinal.
func (s *TypeSpec) Element(ordinal int) string { return s.elements[ordinal] }

// Elements returns a copy of the element names in ordinal order.
func (s *TypeSpec) Elements() []string {
	return append([]string(nil), s.elements...)
}

// InternalName is the main class name, e.g. "com/x/Color".
func (s *TypeSpec) InternalName() string {
	return classfile.InternalName(s.namespace, s.typeName)
}

// AuxName is the internal name of the k-th auxiliary class, "com/x/Color$k".
func (s *TypeSpec) AuxName(k int) string {
	return s.InternalName() + "$" + strconv.Itoa(k)
}
