package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/enumforge/storage"
)

// Source provides class file bytes by internal name.
type Source interface {
	ReadClass(name string) ([]byte, error)
}

// MapSource serves classes from memory, keyed by internal name.
type MapSource map[string][]byte

// ReadClass implements Source.
func (m MapSource) ReadClass(name string) ([]byte, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return data, nil
}

// SinkSource reads "<name>.class" objects back from a storage sink.
type SinkSource struct {
	Ctx  context.Context
	Sink storage.Sink
}

// ReadClass implements Source.
func (s SinkSource) ReadClass(name string) ([]byte, error) {
	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := s.Sink.Get(ctx, name+".class")
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrClassNotFound, name)
	}
	return data, err
}
