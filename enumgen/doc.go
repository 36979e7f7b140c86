// Package enumgen synthesizes JVM enum classes directly from a list of
// element names.
//
// A generated enum is one main class plus, when the element count exceeds
// the chunk size, one auxiliary class Type$k per chunk. Each auxiliary
// class carries a static init() routine that constructs its slice of the
// elements, so no single method body outgrows the 64 KiB code limit.
package enumgen
