package enumgen

import (
	"context"

	"github.com/chazu/enumforge/storage"
)

// Synthesize writes the class files for an enum named typeName in
// namespace, with one instance per element, below outputRoot. Existing
// files are overwritten. It uses the default chunk size.
func Synthesize(namespace, typeName string, elements []string, outputRoot string) error {
	spec, err := NewTypeSpec(namespace, typeName, elements)
	if err != nil {
		return err
	}
	_, err = New(Options{}).Write(context.Background(), spec, storage.NewDirSink(outputRoot))
	return err
}
