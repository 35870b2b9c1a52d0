// Package engine defines the rendering engine contract and the resilient
// one-time initialization around it.
package engine

import "context"

// ProgressFunc receives stage transitions from a running conversion.
// Percentage is 0-100.
type ProgressFunc func(stage string, percentage float64)

// Engine is the document rendering engine. Load is its one-time
// initialization; Convert turns résumé source into PDF bytes. Both are
// opaque fallible operations from the orchestrators' point of view.
type Engine interface {
	Name() string
	Load(ctx context.Context) error
	Convert(ctx context.Context, source string, onProgress ProgressFunc) ([]byte, error)
}
