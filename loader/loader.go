package loader

import (
	"errors"
	"fmt"

	"github.com/chazu/enumforge/pkg/bytecode"
	"github.com/chazu/enumforge/pkg/classfile"
)

// Errors mirror the JVM's error families.
var (
	ErrClassNotFound = errors.New("class not found")
	ErrClassFormat   = errors.New("class format error")
	ErrVerify        = errors.New("verify error")
	ErrLinkage       = errors.New("linkage error")
	ErrRuntime       = errors.New("runtime exception")
)

type initState int

const (
	uninitialized initState = iota
	initializing
	initialized
	failed
)

// Class is a loaded class and its static field storage.
type Class struct {
	Name  string
	Super string
	File  *classfile.ClassFile // nil for built-in classes

	statics   map[string]Value
	state     initState
	initErr   error
	directory map[string]*Instance // valueOf cache, built on first use
}

// Static returns the current value of a static field.
func (c *Class) Static(name string) (Value, bool) {
	v, ok := c.statics[name]
	return v, ok
}

// Initialized reports whether <clinit> has completed.
func (c *Class) Initialized() bool {
	return c.state == initialized
}

func (c *Class) builtin() bool {
	return c.File == nil
}

// Built-in classes the generated code links against.
var builtins = map[string]string{
	classfile.ObjectClass: "",
	classfile.EnumClass:   classfile.ObjectClass,
	classfile.StringClass: classfile.ObjectClass,
	classfile.ClassClass:  classfile.ObjectClass,
}

// Loader resolves, links and initializes classes from a Source.
type Loader struct {
	src       Source
	classes   map[string]*Class
	initOrder []string
	depth     int
	steps     int
}

// New creates a loader reading classes from src.
func New(src Source) *Loader {
	return &Loader{
		src:     src,
		classes: make(map[string]*Class),
	}
}

// Load parses and links a class without initializing it.
func (l *Loader) Load(name string) (*Class, error) {
	if c, ok := l.classes[name]; ok {
		return c, nil
	}
	if super, ok := builtins[name]; ok {
		c := &Class{Name: name, Super: super, state: initialized}
		l.classes[name] = c
		return c, nil
	}

	data, err := l.src.ReadClass(name)
	if err != nil {
		return nil, err
	}
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrClassFormat, name, err)
	}
	if cf.ThisClass != name {
		return nil, fmt.Errorf("%w: %s declares itself as %s", ErrClassFormat, name, cf.ThisClass)
	}
	if cf.Major > classfile.MajorVersion {
		return nil, fmt.Errorf("%w: %s has unsupported version %d.%d", ErrClassFormat, name, cf.Major, cf.Minor)
	}
	if err := checkCode(cf); err != nil {
		return nil, err
	}

	c := &Class{
		Name:    name,
		Super:   cf.SuperClass,
		File:    cf,
		statics: make(map[string]Value),
	}
	for _, f := range cf.Fields {
		if f.Access.Has(classfile.AccStatic) {
			c.statics[f.Name] = zeroValue(f.Descriptor)
		}
	}

	l.classes[name] = c
	if c.Super != "" {
		if _, err := l.Load(c.Super); err != nil {
			delete(l.classes, name)
			return nil, fmt.Errorf("loading superclass of %s: %w", name, err)
		}
	}
	return c, nil
}

// checkCode decodes every method body up front, the way the verifier
// rejects malformed code at link time.
func checkCode(cf *classfile.ClassFile) error {
	for _, m := range cf.Methods {
		if m.Code == nil {
			return fmt.Errorf("%w: %s.%s%s has no Code attribute", ErrClassFormat, cf.ThisClass, m.Name, m.Descriptor)
		}
		if _, err := bytecode.Decode(m.Code); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrVerify, cf.ThisClass, m.Name, err)
		}
		if _, err := classfile.ArgumentSlots(m.Descriptor); err != nil {
			return fmt.Errorf("%w: %s.%s: %v", ErrClassFormat, cf.ThisClass, m.Name, err)
		}
	}
	return nil
}

func zeroValue(descriptor string) Value {
	switch descriptor {
	case "I", "S", "B", "C", "Z":
		return int32(0)
	}
	return nil
}

// Initialize loads name and runs its static initializer if that has not
// happened yet. A class whose initialization is already in progress is
// returned as is. A class whose initializer failed stays unusable.
func (l *Loader) Initialize(name string) (*Class, error) {
	c, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	switch c.state {
	case initialized, initializing:
		return c, nil
	case failed:
		return nil, fmt.Errorf("%w: %s could not be initialized: %v", ErrRuntime, name, c.initErr)
	}

	c.state = initializing
	l.initOrder = append(l.initOrder, name)
	if c.Super != "" {
		if _, err := l.Initialize(c.Super); err != nil {
			c.state, c.initErr = failed, err
			return nil, err
		}
	}
	if m := c.File.Method("<clinit>", classfile.VoidMethod); m != nil {
		if _, err := l.run(c, m, nil); err != nil {
			c.state, c.initErr = failed, err
			return nil, fmt.Errorf("initializing %s: %w", name, err)
		}
	}
	c.state = initialized
	return c, nil
}

// InitOrder lists classes in the order their initialization started.
func (l *Loader) InitOrder() []string {
	return append([]string(nil), l.initOrder...)
}

// Steps returns the number of instructions executed so far.
func (l *Loader) Steps() int {
	return l.steps
}

// GetStatic initializes class and reads one of its static fields.
func (l *Loader) GetStatic(class, field string) (Value, error) {
	c, err := l.Initialize(class)
	if err != nil {
		return nil, err
	}
	v, ok := c.Static(field)
	if !ok {
		return nil, fmt.Errorf("%w: no static field %s.%s", ErrLinkage, class, field)
	}
	return v, nil
}

// InvokeStatic initializes class and calls one of its static methods.
func (l *Loader) InvokeStatic(class, name, descriptor string, args ...Value) (Value, error) {
	c, err := l.Initialize(class)
	if err != nil {
		return nil, err
	}
	if c.builtin() {
		return nil, fmt.Errorf("%w: cannot invoke %s.%s on a built-in class", ErrLinkage, class, name)
	}
	m := c.File.Method(name, descriptor)
	if m == nil || !m.Access.Has(classfile.AccStatic) {
		return nil, fmt.Errorf("%w: no static method %s.%s%s", ErrLinkage, class, name, descriptor)
	}
	return l.run(c, m, args)
}
