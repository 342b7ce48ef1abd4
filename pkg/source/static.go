package source

import (
	"context"

	"github.com/feedmirror/feedmirror/pkg/plugin"
)

// StaticSource contributes the inline "singles" from the origins file.
// Descriptors pass through untouched, in declared order.
type StaticSource struct {
	Singles []plugin.Descriptor
}

var _ Source = &StaticSource{}

func (s *StaticSource) Resolve(ctx context.Context) ([]plugin.Descriptor, error) {
	return s.Singles, nil
}
