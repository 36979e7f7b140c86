package loader

import (
	"fmt"

	"github.com/chazu/enumforge/pkg/classfile"
)

// Enum is an initialized enum class, accessed the way Java callers would:
// through values(), valueOf(String) and its public static fields.
type Enum struct {
	loader *Loader
	class  *Class
}

// LoadEnum creates a loader over src and initializes the enum class name.
func LoadEnum(src Source, name string) (*Enum, error) {
	return New(src).Enum(name)
}

// Enum initializes name and checks that it is an enum class.
func (l *Loader) Enum(name string) (*Enum, error) {
	c, err := l.Initialize(name)
	if err != nil {
		return nil, err
	}
	if c.builtin() || c.Super != classfile.EnumClass || !c.File.Access.Has(classfile.AccEnum) {
		return nil, fmt.Errorf("%w: %s is not an enum class", ErrLinkage, name)
	}
	return &Enum{loader: l, class: c}, nil
}

// Loader returns the loader the enum was initialized with.
func (e *Enum) Loader() *Loader { return e.loader }

// Class returns the enum's class.
func (e *Enum) Class() *Class { return e.class }

func (e *Enum) elemDesc() string {
	return classfile.ObjectDescriptor(e.class.Name)
}

func (e *Enum) valuesArray() (*Array, error) {
	v, err := e.loader.InvokeStatic(e.class.Name, "values",
		classfile.MethodDescriptor(classfile.ArrayDescriptor(e.elemDesc())))
	if err != nil {
		return nil, err
	}
	arr, ok := v.(*Array)
	if !ok {
		return nil, fmt.Errorf("%w: values() returned %s", ErrRuntime, describe(v))
	}
	return arr, nil
}

// Values calls values() and returns the instances in ordinal order.
func (e *Enum) Values() ([]*Instance, error) {
	arr, err := e.valuesArray()
	if err != nil {
		return nil, err
	}
	out := make([]*Instance, len(arr.Items))
	for i, item := range arr.Items {
		obj, ok := item.(*Instance)
		if !ok {
			return nil, fmt.Errorf("%w: values()[%d] is %s", ErrRuntime, i, describe(item))
		}
		out[i] = obj
	}
	return out, nil
}

// ValueOf calls valueOf(name).
func (e *Enum) ValueOf(name string) (*Instance, error) {
	v, err := e.loader.InvokeStatic(e.class.Name, "valueOf",
		classfile.MethodDescriptor(e.elemDesc(), classfile.ObjectDescriptor(classfile.StringClass)), name)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Instance)
	if !ok {
		return nil, fmt.Errorf("%w: valueOf(%q) returned %s", ErrRuntime, name, describe(v))
	}
	return obj, nil
}

// Field reads the public static field holding the constant name.
func (e *Enum) Field(name string) (*Instance, error) {
	v, err := e.loader.GetStatic(e.class.Name, name)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Instance)
	if !ok {
		return nil, fmt.Errorf("%w: field %s holds %s", ErrRuntime, name, describe(v))
	}
	return obj, nil
}

// Check verifies the consumer contract against the expected element names:
// values() lists one instance per name in order with matching ordinals,
// each static field and valueOf return that same instance, and values()
// returns a fresh array each call.
func (e *Enum) Check(expected []string) error {
	values, err := e.Values()
	if err != nil {
		return err
	}
	if len(values) != len(expected) {
		return fmt.Errorf("%w: values() has %d instances, want %d", ErrRuntime, len(values), len(expected))
	}
	for i, obj := range values {
		if obj.Name != expected[i] || int(obj.Ordinal) != i {
			return fmt.Errorf("%w: values()[%d] is %s(%d), want %s(%d)", ErrRuntime, i, obj.Name, obj.Ordinal, expected[i], i)
		}
		field, err := e.Field(obj.Name)
		if err != nil {
			return err
		}
		byName, err := e.ValueOf(obj.Name)
		if err != nil {
			return err
		}
		if field != obj || byName != obj {
			return fmt.Errorf("%w: %s is not a singleton", ErrRuntime, obj.Name)
		}
	}

	first, err := e.valuesArray()
	if err != nil {
		return err
	}
	second, err := e.valuesArray()
	if err != nil {
		return err
	}
	backing, _ := e.class.Static("$VALUES")
	if first == second || Value(first) == backing {
		return fmt.Errorf("%w: values() exposes its backing array", ErrRuntime)
	}
	return nil
}
