package enumgen

import (
	"github.com/chazu/enumforge/pkg/bytecode"
	"github.com/chazu/enumforge/pkg/classfile"
)

const (
	valuesField = "$VALUES"
	initMethod  = "init"
	ctorName    = "<init>"
	clinitName  = "<clinit>"
)

// Method descriptors referenced by generated code.
var (
	ctorDesc      = classfile.MethodDescriptor("V", classfile.ObjectDescriptor(classfile.StringClass), "I")
	enumValueOf   = classfile.MethodDescriptor(classfile.ObjectDescriptor(classfile.EnumClass), classfile.ObjectDescriptor(classfile.ClassClass), classfile.ObjectDescriptor(classfile.StringClass))
	cloneDesc     = classfile.MethodDescriptor(classfile.ObjectDescriptor(classfile.ObjectClass))
	valueOfParams = classfile.ObjectDescriptor(classfile.StringClass)
)

// elementEmitter appends the per-element instruction sequences to one code
// stream. Every reference it emits points at the main class, so the same
// emitter shape serves both <clinit> and the auxiliary init routines.
type elementEmitter struct {
	spec *TypeSpec
	pool *classfile.ConstantPool
	code *bytecode.Builder

	self     string
	elemDesc string
	arrDesc  string
}

func newElementEmitter(spec *TypeSpec, pool *classfile.ConstantPool, code *bytecode.Builder) *elementEmitter {
	self := spec.InternalName()
	elem := classfile.ObjectDescriptor(self)
	return &elementEmitter{
		spec:     spec,
		pool:     pool,
		code:     code,
		self:     self,
		elemDesc: elem,
		arrDesc:  classfile.ArrayDescriptor(elem),
	}
}

func (e *elementEmitter) field(ordinal int) uint16 {
	return e.pool.Fieldref(e.self, e.spec.Element(ordinal), e.elemDesc)
}

func (e *elementEmitter) valuesRef() uint16 {
	return e.pool.Fieldref(e.self, valuesField, e.arrDesc)
}

// prologue allocates the values array: push N; anewarray T; putstatic $VALUES.
func (e *elementEmitter) prologue() error {
	if err := bytecode.EmitIntLiteral(e.code, e.pool, e.spec.Len()); err != nil {
		return err
	}
	e.code.EmitU2(bytecode.OpAnewarray, e.pool.Class(e.self))
	e.code.EmitField(bytecode.OpPutstatic, e.valuesRef(), 1)
	return nil
}

// construct creates element i and stores it in its static field:
// new T; dup; ldc name; push i; invokespecial <init>; putstatic E_i.
func (e *elementEmitter) construct(i int) error {
	e.code.EmitU2(bytecode.OpNew, e.pool.Class(e.self))
	e.code.Emit(bytecode.OpDup)
	e.code.EmitLdc(e.pool.StringConstant(e.spec.Element(i)))
	if err := bytecode.EmitIntLiteral(e.code, e.pool, i); err != nil {
		return err
	}
	e.code.EmitInvoke(bytecode.OpInvokespecial, e.pool.Methodref(e.self, ctorName, ctorDesc), 2, 0)
	e.code.EmitField(bytecode.OpPutstatic, e.field(i), 1)
	return nil
}

// store copies element i into the values array:
// getstatic $VALUES; push i; getstatic E_i; aastore.
func (e *elementEmitter) store(i int) error {
	e.code.EmitField(bytecode.OpGetstatic, e.valuesRef(), 1)
	if err := bytecode.EmitIntLiteral(e.code, e.pool, i); err != nil {
		return err
	}
	e.code.EmitField(bytecode.OpGetstatic, e.field(i), 1)
	e.code.Emit(bytecode.OpAastore)
	return nil
}

// buildMain assembles the enum class itself.
func buildMain(spec *TypeSpec, plan Plan) (*classfile.Class, error) {
	self := spec.InternalName()
	c := classfile.NewClass(self, classfile.EnumClass,
		classfile.AccPublic|classfile.AccFinal|classfile.AccSuper|classfile.AccEnum)

	elemDesc := classfile.ObjectDescriptor(self)
	arrDesc := classfile.ArrayDescriptor(elemDesc)

	// Element fields are not final: the auxiliary classes assign them.
	for _, name := range spec.elements {
		c.AddField(name, elemDesc, classfile.AccPublic|classfile.AccStatic)
	}
	c.AddField(valuesField, arrDesc, classfile.AccStatic|classfile.AccFinal|classfile.AccSynthetic)

	valueOf := c.AddMethod("valueOf", classfile.MethodDescriptor(elemDesc, valueOfParams),
		classfile.AccPublic|classfile.AccStatic)
	valueOf.Code.EmitLdc(c.Pool.Class(self))
	valueOf.Code.Emit(bytecode.OpAload0)
	valueOf.Code.EmitInvoke(bytecode.OpInvokestatic, c.Pool.Methodref(classfile.EnumClass, "valueOf", enumValueOf), 2, 1)
	valueOf.Code.EmitU2(bytecode.OpCheckcast, c.Pool.Class(self))
	valueOf.Code.Emit(bytecode.OpAreturn)

	values := c.AddMethod("values", classfile.MethodDescriptor(arrDesc),
		classfile.AccPublic|classfile.AccStatic)
	values.Code.EmitField(bytecode.OpGetstatic, c.Pool.Fieldref(self, valuesField, arrDesc), 1)
	values.Code.EmitInvoke(bytecode.OpInvokevirtual, c.Pool.Methodref(arrDesc, "clone", cloneDesc), 0, 1)
	values.Code.EmitU2(bytecode.OpCheckcast, c.Pool.Class(arrDesc))
	values.Code.Emit(bytecode.OpAreturn)

	ctor := c.AddMethod(ctorName, ctorDesc, 0)
	ctor.Code.Emit(bytecode.OpAload0)
	ctor.Code.Emit(bytecode.OpAload1)
	ctor.Code.Emit(bytecode.OpIload2)
	ctor.Code.EmitInvoke(bytecode.OpInvokespecial, c.Pool.Methodref(classfile.EnumClass, ctorName, ctorDesc), 2, 0)
	ctor.Code.Emit(bytecode.OpReturn)

	clinit := c.AddMethod(clinitName, classfile.VoidMethod, classfile.AccStatic)
	e := newElementEmitter(spec, c.Pool, clinit.Code)
	if err := e.prologue(); err != nil {
		return nil, err
	}
	if plan.Inline() {
		for i := 0; i < spec.Len(); i++ {
			if err := e.construct(i); err != nil {
				return nil, err
			}
			if err := e.store(i); err != nil {
				return nil, err
			}
		}
	} else {
		for _, part := range plan.Partitions {
			ref := c.Pool.Methodref(spec.AuxName(part.Index), initMethod, classfile.VoidMethod)
			clinit.Code.EmitInvoke(bytecode.OpInvokestatic, ref, 0, 0)
		}
	}
	clinit.Code.Emit(bytecode.OpReturn)
	return c, nil
}

// buildAux assembles Type$k, whose init routine constructs every element
// of the partition and then stores each one into the values array.
func buildAux(spec *TypeSpec, part Partition) (*classfile.Class, error) {
	c := classfile.NewClass(spec.AuxName(part.Index), classfile.ObjectClass,
		classfile.AccFinal|classfile.AccSuper)
	m := c.AddMethod(initMethod, classfile.VoidMethod, classfile.AccStatic|classfile.AccFinal)

	e := newElementEmitter(spec, c.Pool, m.Code)
	for i := part.From; i < part.To; i++ {
		if err := e.construct(i); err != nil {
			return nil, err
		}
	}
	for i := part.From; i < part.To; i++ {
		if err := e.store(i); err != nil {
			return nil, err
		}
	}
	m.Code.Emit(bytecode.OpReturn)
	return c, nil
}
