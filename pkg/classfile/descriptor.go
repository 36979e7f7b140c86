package classfile

import (
	"fmt"
	"strings"
)

// Common descriptors and internal names.
const (
	ObjectClass = "java/lang/Object"
	StringClass = "java/lang/String"
	ClassClass  = "java/lang/Class"
	EnumClass   = "java/lang/Enum"

	VoidMethod = "()V"
)

// ObjectDescriptor returns the field descriptor for an internal class name.
func ObjectDescriptor(internalName string) string {
	return "L" + internalName + ";"
}

// ArrayDescriptor returns the descriptor of a one-dimensional array of elem.
func ArrayDescriptor(elem string) string {
	return "[" + elem
}

// MethodDescriptor builds "(params...)ret".
func MethodDescriptor(ret string, params ...string) string {
	return "(" + strings.Join(params, "") + ")" + ret
}

// InternalName converts a dotted or slash-separated package plus a simple
// name into internal form: ("com.x", "Color") gives "com/x/Color".
func InternalName(pkg, simple string) string {
	pkg = strings.Trim(strings.ReplaceAll(pkg, ".", "/"), "/")
	if pkg == "" {
		return simple
	}
	return pkg + "/" + simple
}

// FieldSlots returns the operand stack slots a value of the field
// descriptor occupies.
func FieldSlots(descriptor string) (int, error) {
	n, rest, err := parseFieldType(descriptor)
	if err != nil {
		return 0, err
	}
	if rest != "" {
		return 0, fmt.Errorf("%w: trailing %q in %q", ErrBadDescriptor, rest, descriptor)
	}
	return n, nil
}

// ArgumentSlots returns the local variable slots taken by a method
// descriptor's parameters (longs and doubles count twice).
func ArgumentSlots(descriptor string) (int, error) {
	args, _, err := parseMethodDescriptor(descriptor)
	return args, err
}

// ReturnSlots returns 0 for void, 2 for long/double and 1 otherwise.
func ReturnSlots(descriptor string) (int, error) {
	_, ret, err := parseMethodDescriptor(descriptor)
	return ret, err
}

func parseMethodDescriptor(d string) (args, ret int, err error) {
	if !strings.HasPrefix(d, "(") {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadDescriptor, d)
	}
	rest := d[1:]
	for !strings.HasPrefix(rest, ")") {
		if rest == "" {
			return 0, 0, fmt.Errorf("%w: unterminated parameters in %q", ErrBadDescriptor, d)
		}
		var n int
		n, rest, err = parseFieldType(rest)
		if err != nil {
			return 0, 0, fmt.Errorf("%w in %q", err, d)
		}
		args += n
	}
	rest = rest[1:]
	if rest == "V" {
		return args, 0, nil
	}
	ret, rest, err = parseFieldType(rest)
	if err != nil {
		return 0, 0, fmt.Errorf("%w in %q", err, d)
	}
	if rest != "" {
		return 0, 0, fmt.Errorf("%w: trailing %q in %q", ErrBadDescriptor, rest, d)
	}
	return args, ret, nil
}

func parseFieldType(d string) (slots int, rest string, err error) {
	if d == "" {
		return 0, "", fmt.Errorf("%w: empty type", ErrBadDescriptor)
	}
	switch d[0] {
	case 'B', 'C', 'F', 'I', 'S', 'Z':
		return 1, d[1:], nil
	case 'J', 'D':
		return 2, d[1:], nil
	case 'L':
		end := strings.IndexByte(d, ';')
		if end < 2 {
			return 0, "", fmt.Errorf("%w: bad class type %q", ErrBadDescriptor, d)
		}
		return 1, d[end+1:], nil
	case '[':
		i := 0
		for i < len(d) && d[i] == '[' {
			i++
		}
		if i > 255 {
			return 0, "", fmt.Errorf("%w: more than 255 array dimensions", ErrBadDescriptor)
		}
		_, rest, err := parseFieldType(d[i:])
		if err != nil {
			return 0, "", err
		}
		return 1, rest, nil
	default:
		return 0, "", fmt.Errorf("%w: unexpected %q", ErrBadDescriptor, d[0])
	}
}
