package loader

import (
	"fmt"
	"strings"

	"github.com/chazu/enumforge/pkg/bytecode"
	"github.com/chazu/enumforge/pkg/classfile"
)

const maxCallDepth = 256

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

type frame struct {
	class  *Class
	method *classfile.MethodInfo
	locals []Value
	stack  []Value
}

func (f *frame) String() string {
	return f.class.Name + "." + f.method.Name + f.method.Descriptor
}

func (f *frame) push(v Value) error {
	if len(f.stack) >= f.method.MaxStack {
		return fmt.Errorf("%w: %s: operand stack exceeds max_stack %d", ErrVerify, f, f.method.MaxStack)
	}
	f.stack = append(f.stack, v)
	return nil
}

func (f *frame) pop() (Value, error) {
	if len(f.stack) == 0 {
		return nil, fmt.Errorf("%w: %s: operand stack underflow", ErrVerify, f)
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

func (f *frame) popInt() (int32, error) {
	v, err := f.pop()
	if err != nil {
		return 0, err
	}
	n, ok := v.(int32)
	if !ok {
		return 0, fmt.Errorf("%w: %s: expected int, found %s", ErrVerify, f, describe(v))
	}
	return n, nil
}

func (f *frame) popN(n int) ([]Value, error) {
	if len(f.stack) < n {
		return nil, fmt.Errorf("%w: %s: operand stack underflow", ErrVerify, f)
	}
	out := make([]Value, n)
	copy(out, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return out, nil
}

func (f *frame) load(slot int, wantInt bool) error {
	if slot >= len(f.locals) {
		return fmt.Errorf("%w: %s: local %d beyond max_locals %d", ErrVerify, f, slot, len(f.locals))
	}
	v := f.locals[slot]
	if _, isInt := v.(int32); isInt != wantInt {
		return fmt.Errorf("%w: %s: local %d holds %s", ErrVerify, f, slot, describe(v))
	}
	return f.push(v)
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

func (l *Loader) run(c *Class, m *classfile.MethodInfo, args []Value) (Value, error) {
	if l.depth >= maxCallDepth {
		return nil, fmt.Errorf("%w: stack overflow calling %s.%s", ErrRuntime, c.Name, m.Name)
	}
	l.depth++
	defer func() { l.depth-- }()

	f := &frame{
		class:  c,
		method: m,
		locals: make([]Value, m.MaxLocals),
		stack:  make([]Value, 0, m.MaxStack),
	}
	if len(args) > m.MaxLocals {
		return nil, fmt.Errorf("%w: %s: %d arguments exceed max_locals %d", ErrVerify, f, len(args), m.MaxLocals)
	}
	copy(f.locals, args)

	r := bytecode.NewReader(m.Code)
	for r.HasMore() {
		in, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrVerify, f, err)
		}
		l.steps++
		done, ret, err := l.step(f, in)
		if err != nil {
			return nil, err
		}
		if done {
			return ret, nil
		}
	}
	return nil, fmt.Errorf("%w: %s falls off the end of its code", ErrVerify, f)
}

func (l *Loader) step(f *frame, in bytecode.Instruction) (done bool, ret Value, err error) {
	switch op := in.Op; op {
	case bytecode.OpNop:

	case bytecode.OpAconstNull:
		err = f.push(nil)

	case bytecode.OpIconstM1, bytecode.OpIconst0, bytecode.OpIconst1, bytecode.OpIconst2,
		bytecode.OpIconst3, bytecode.OpIconst4, bytecode.OpIconst5, bytecode.OpBipush, bytecode.OpSipush:
		v, _ := bytecode.IntLiteral(in, nil)
		err = f.push(v)

	case bytecode.OpLdc, bytecode.OpLdcW:
		err = l.ldc(f, uint16(in.Operand))

	case bytecode.OpIload:
		err = f.load(in.Operand, true)
	case bytecode.OpIload0, bytecode.OpIload1, bytecode.OpIload2, bytecode.OpIload3:
		err = f.load(int(op-bytecode.OpIload0), true)
	case bytecode.OpAload:
		err = f.load(in.Operand, false)
	case bytecode.OpAload0, bytecode.OpAload1, bytecode.OpAload2, bytecode.OpAload3:
		err = f.load(int(op-bytecode.OpAload0), false)

	case bytecode.OpPop:
		_, err = f.pop()

	case bytecode.OpDup:
		var v Value
		if v, err = f.pop(); err == nil {
			if err = f.push(v); err == nil {
				err = f.push(v)
			}
		}

	case bytecode.OpAastore:
		err = l.aastore(f)

	case bytecode.OpArraylength:
		var v Value
		if v, err = f.pop(); err == nil {
			arr, ok := v.(*Array)
			switch {
			case v == nil:
				err = fmt.Errorf("%w: %s: arraylength of null", ErrRuntime, f)
			case !ok:
				err = fmt.Errorf("%w: %s: arraylength of %s", ErrVerify, f, describe(v))
			default:
				err = f.push(int32(len(arr.Items)))
			}
		}

	case bytecode.OpIreturn, bytecode.OpAreturn:
		ret, err = f.pop()
		return err == nil, ret, err

	case bytecode.OpReturn:
		if !strings.HasSuffix(f.method.Descriptor, ")V") {
			return false, nil, fmt.Errorf("%w: %s: return from non-void method", ErrVerify, f)
		}
		return true, nil, nil

	case bytecode.OpGetstatic, bytecode.OpPutstatic:
		err = l.staticField(f, uint16(in.Operand), op == bytecode.OpPutstatic)

	case bytecode.OpInvokestatic, bytecode.OpInvokespecial, bytecode.OpInvokevirtual:
		err = l.invoke(f, op, uint16(in.Operand))

	case bytecode.OpNew:
		err = l.newInstance(f, uint16(in.Operand))

	case bytecode.OpAnewarray:
		err = l.anewarray(f, uint16(in.Operand))

	case bytecode.OpCheckcast:
		err = l.checkcast(f, uint16(in.Operand))

	default:
		err = fmt.Errorf("%w: %s: unsupported instruction %s", ErrVerify, f, op)
	}
	return false, nil, err
}

func (l *Loader) ldc(f *frame, index uint16) error {
	cf := f.class.File
	switch tag := cf.Tag(index); tag {
	case classfile.TagInteger:
		v, _ := cf.IntegerAt(index)
		return f.push(v)
	case classfile.TagString:
		s, _ := cf.StringAt(index)
		return f.push(s)
	case classfile.TagClass:
		name, _ := cf.ClassAt(index)
		return f.push(&ClassRef{Name: name})
	default:
		return fmt.Errorf("%w: %s: ldc of %s constant #%d", ErrVerify, f, tag, index)
	}
}

func (l *Loader) aastore(f *frame) error {
	vals, err := f.popN(3)
	if err != nil {
		return err
	}
	ref, idx, val := vals[0], vals[1], vals[2]
	index, ok := idx.(int32)
	if !ok {
		return fmt.Errorf("%w: %s: aastore index is %s", ErrVerify, f, describe(idx))
	}
	if ref == nil {
		return fmt.Errorf("%w: %s: aastore into null", ErrRuntime, f)
	}
	arr, ok := ref.(*Array)
	if !ok {
		return fmt.Errorf("%w: %s: aastore into %s", ErrVerify, f, describe(ref))
	}
	if index < 0 || int(index) >= len(arr.Items) {
		return fmt.Errorf("%w: %s: index %d out of bounds for length %d", ErrRuntime, f, index, len(arr.Items))
	}
	if !l.assignable(val, arr.Elem) {
		return fmt.Errorf("%w: %s: cannot store %s in %s", ErrRuntime, f, describe(val), arr.Descriptor())
	}
	arr.Items[index] = val
	return nil
}

func (l *Loader) newInstance(f *frame, index uint16) error {
	name, err := f.class.File.ClassAt(index)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrVerify, f, err)
	}
	c, err := l.Initialize(name)
	if err != nil {
		return err
	}
	if c.builtin() {
		return fmt.Errorf("%w: %s: cannot instantiate %s", ErrLinkage, f, name)
	}
	return f.push(&Instance{Class: c})
}

func (l *Loader) anewarray(f *frame, index uint16) error {
	name, err := f.class.File.ClassAt(index)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrVerify, f, err)
	}
	count, err := f.popInt()
	if err != nil {
		return err
	}
	if count < 0 {
		return fmt.Errorf("%w: %s: negative array size %d", ErrRuntime, f, count)
	}
	elem := name
	if !strings.HasPrefix(name, "[") {
		if _, err := l.Load(name); err != nil {
			return err
		}
		elem = classfile.ObjectDescriptor(name)
	}
	return f.push(&Array{Elem: elem, Items: make([]Value, count)})
}

func (l *Loader) checkcast(f *frame, index uint16) error {
	name, err := f.class.File.ClassAt(index)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrVerify, f, err)
	}
	if len(f.stack) == 0 {
		return fmt.Errorf("%w: %s: operand stack underflow", ErrVerify, f)
	}
	if v := f.stack[len(f.stack)-1]; !l.instanceOf(v, name) {
		return fmt.Errorf("%w: %s: %s cannot be cast to %s", ErrRuntime, f, describe(v), name)
	}
	return nil
}

// instanceOf reports whether v may be cast to the class or array type
// named by target. null casts to anything.
func (l *Loader) instanceOf(v Value, target string) bool {
	if v == nil || target == classfile.ObjectClass {
		return true
	}
	switch v := v.(type) {
	case *Instance:
		for c := v.Class; c != nil; c = l.classes[c.Super] {
			if c.Name == target {
				return true
			}
			if c.Super == "" {
				break
			}
		}
	case *Array:
		return v.Descriptor() == target
	case string:
		return target == classfile.StringClass
	case *ClassRef:
		return target == classfile.ClassClass
	}
	return false
}

// assignable reports whether v can be stored where the field descriptor
// desc is expected.
func (l *Loader) assignable(v Value, desc string) bool {
	switch {
	case desc == "I":
		_, ok := v.(int32)
		return ok
	case strings.HasPrefix(desc, "L") && strings.HasSuffix(desc, ";"):
		if _, isInt := v.(int32); isInt {
			return false
		}
		return l.instanceOf(v, desc[1:len(desc)-1])
	case strings.HasPrefix(desc, "["):
		if _, isInt := v.(int32); isInt {
			return false
		}
		return l.instanceOf(v, desc)
	}
	return false
}

// ---------------------------------------------------------------------------
// Linkage
// ---------------------------------------------------------------------------

func (l *Loader) member(f *frame, index uint16, want classfile.ConstantTag) (classfile.MemberRef, error) {
	if tag := f.class.File.Tag(index); tag != want {
		return classfile.MemberRef{}, fmt.Errorf("%w: %s: constant #%d is %s, not %s", ErrVerify, f, index, tag, want)
	}
	ref, err := f.class.File.MemberAt(index)
	if err != nil {
		return ref, fmt.Errorf("%w: %s: %v", ErrVerify, f, err)
	}
	return ref, nil
}

func (l *Loader) staticField(f *frame, index uint16, put bool) error {
	ref, err := l.member(f, index, classfile.TagFieldref)
	if err != nil {
		return err
	}
	owner, err := l.Initialize(ref.Owner)
	if err != nil {
		return err
	}
	var fi *classfile.FieldInfo
	if !owner.builtin() {
		fi = owner.File.Field(ref.Name)
	}
	switch {
	case fi == nil || fi.Descriptor != ref.Descriptor:
		return fmt.Errorf("%w: no field %s.%s:%s", ErrLinkage, ref.Owner, ref.Name, ref.Descriptor)
	case !fi.Access.Has(classfile.AccStatic):
		return fmt.Errorf("%w: %s.%s is not static", ErrLinkage, ref.Owner, ref.Name)
	case fi.Access.Has(classfile.AccPrivate) && owner != f.class:
		return fmt.Errorf("%w: %s cannot access private %s.%s", ErrLinkage, f.class.Name, ref.Owner, ref.Name)
	}

	if !put {
		return f.push(owner.statics[ref.Name])
	}
	if fi.Access.Has(classfile.AccFinal) && (owner != f.class || f.method.Name != "<clinit>") {
		return fmt.Errorf("%w: %s cannot assign final field %s.%s", ErrLinkage, f, ref.Owner, ref.Name)
	}
	v, err := f.pop()
	if err != nil {
		return err
	}
	if !l.assignable(v, ref.Descriptor) {
		return fmt.Errorf("%w: %s: cannot assign %s to %s.%s:%s", ErrVerify, f, describe(v), ref.Owner, ref.Name, ref.Descriptor)
	}
	owner.statics[ref.Name] = v
	return nil
}

func (l *Loader) invoke(f *frame, op bytecode.Opcode, index uint16) error {
	ref, err := l.member(f, index, classfile.TagMethodref)
	if err != nil {
		return err
	}
	slots, err := classfile.ArgumentSlots(ref.Descriptor)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrVerify, f, err)
	}
	if op != bytecode.OpInvokestatic {
		slots++
	}
	args, err := f.popN(slots)
	if err != nil {
		return err
	}
	if op != bytecode.OpInvokestatic && args[0] == nil {
		return fmt.Errorf("%w: %s: invoking %s.%s on null", ErrRuntime, f, ref.Owner, ref.Name)
	}

	var result Value
	if native := lookupNative(ref); native != nil {
		result, err = native(l, args)
	} else {
		result, err = l.invokeDeclared(f, op, ref, args)
	}
	if err != nil {
		return err
	}
	if strings.HasSuffix(ref.Descriptor, ")V") {
		return nil
	}
	return f.push(result)
}

func (l *Loader) invokeDeclared(f *frame, op bytecode.Opcode, ref classfile.MemberRef, args []Value) (Value, error) {
	var owner *Class
	var err error
	if op == bytecode.OpInvokestatic {
		owner, err = l.Initialize(ref.Owner)
	} else {
		owner, err = l.Load(ref.Owner)
	}
	if err != nil {
		return nil, err
	}

	var m *classfile.MethodInfo
	if !owner.builtin() {
		m = owner.File.Method(ref.Name, ref.Descriptor)
	}
	switch {
	case m == nil:
		return nil, fmt.Errorf("%w: no method %s.%s%s", ErrLinkage, ref.Owner, ref.Name, ref.Descriptor)
	case m.Access.Has(classfile.AccStatic) != (op == bytecode.OpInvokestatic):
		return nil, fmt.Errorf("%w: %s %s.%s%s", ErrLinkage, op, ref.Owner, ref.Name, ref.Descriptor)
	case m.Access.Has(classfile.AccPrivate) && owner != f.class:
		return nil, fmt.Errorf("%w: %s cannot access private %s.%s", ErrLinkage, f.class.Name, ref.Owner, ref.Name)
	}
	return l.run(owner, m, args)
}

// ---------------------------------------------------------------------------
// Built-in methods
// ---------------------------------------------------------------------------

type nativeMethod func(l *Loader, args []Value) (Value, error)

func lookupNative(ref classfile.MemberRef) nativeMethod {
	if strings.HasPrefix(ref.Owner, "[") {
		if ref.Name == "clone" && ref.Descriptor == "()Ljava/lang/Object;" {
			return arrayClone
		}
		return nil
	}
	switch ref.Owner + "." + ref.Name + ref.Descriptor {
	case "java/lang/Object.<init>()V":
		return func(*Loader, []Value) (Value, error) { return nil, nil }
	case "java/lang/Enum.<init>(Ljava/lang/String;I)V":
		return enumInit
	case "java/lang/Enum.valueOf(Ljava/lang/Class;Ljava/lang/String;)Ljava/lang/Enum;":
		return enumValueOf
	}
	return nil
}

func enumInit(_ *Loader, args []Value) (Value, error) {
	obj, ok := args[0].(*Instance)
	if !ok {
		return nil, fmt.Errorf("%w: Enum.<init> on %s", ErrVerify, describe(args[0]))
	}
	if obj.constructed {
		return nil, fmt.Errorf("%w: %s constructed twice", ErrVerify, obj)
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: Enum.<init> name is %s", ErrVerify, describe(args[1]))
	}
	ordinal, ok := args[2].(int32)
	if !ok {
		return nil, fmt.Errorf("%w: Enum.<init> ordinal is %s", ErrVerify, describe(args[2]))
	}
	obj.Name, obj.Ordinal, obj.constructed = name, ordinal, true
	return nil, nil
}

// enumValueOf resolves a constant through a directory built once per class
// from values().
func enumValueOf(l *Loader, args []Value) (Value, error) {
	cls, ok := args[0].(*ClassRef)
	if !ok {
		return nil, fmt.Errorf("%w: Enum.valueOf class is %s", ErrRuntime, describe(args[0]))
	}
	name, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("%w: Enum.valueOf name is %s", ErrRuntime, describe(args[1]))
	}
	c, err := l.Initialize(cls.Name)
	if err != nil {
		return nil, err
	}
	if c.directory == nil {
		v, err := l.InvokeStatic(c.Name, "values", classfile.MethodDescriptor(classfile.ArrayDescriptor(classfile.ObjectDescriptor(c.Name))))
		if err != nil {
			return nil, err
		}
		arr, ok := v.(*Array)
		if !ok {
			return nil, fmt.Errorf("%w: %s.values() returned %s", ErrRuntime, c.Name, describe(v))
		}
		dir := make(map[string]*Instance, len(arr.Items))
		for _, item := range arr.Items {
			if obj, ok := item.(*Instance); ok {
				dir[obj.Name] = obj
			}
		}
		c.directory = dir
	}
	obj, ok := c.directory[name]
	if !ok {
		return nil, fmt.Errorf("%w: no enum constant %s.%s", ErrRuntime, c.Name, name)
	}
	return obj, nil
}

func arrayClone(_ *Loader, args []Value) (Value, error) {
	arr, ok := args[0].(*Array)
	if !ok {
		return nil, fmt.Errorf("%w: clone on %s", ErrVerify, describe(args[0]))
	}
	return &Array{Elem: arr.Elem, Items: append([]Value(nil), arr.Items...)}, nil
}
