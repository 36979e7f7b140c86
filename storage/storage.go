// Package storage persists generated class files.
package storage

import (
	"context"
	"errors"

	"github.com/tliron/commonlog"
)

// Common errors for storage operations.
var (
	ErrStorage  = errors.New("storage failure")
	ErrNotFound = errors.New("object not found")
)

var log = commonlog.GetLogger("enumforge.storage")

// Sink stores modules under slash-separated relative paths such as
// "com/x/Color.class". Put replaces any existing object at path.
type Sink interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
}
