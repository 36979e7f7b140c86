// Package loader loads generated class files and runs their static
// initializers without a JVM.
//
// Only the straight-line instruction subset the generator emits is
// supported. The interpreter follows the JVM rules that matter for enum
// initialization: a class is initialized once, on first active use; a
// class whose initializer is in progress may be used by the initializing
// code; final static fields are assignable only from their own class's
// <clinit>; private members are not visible to other classes; and the
// operand stack may never exceed the method's max_stack.
package loader
