// Package classfile assembles and parses JVM class files.
//
// A Class collects a constant pool, fields and methods; each method owns a
// bytecode.Builder that the caller fills in. Bytes serializes the class in
// the standard layout (magic, version, constant pool, access flags,
// this/super, interfaces, fields, methods with Code attributes, attributes)
// after checking the format's hard limits. Parse reads a class file back
// into a ClassFile view.
package classfile
