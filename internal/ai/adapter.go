// Package ai wraps the generative call that turns an existing test file and
// its source into a revised test file.
package ai

import "context"

// Adapter generates revised test content from the existing test and the
// source under test. Implementations return an error or empty content when
// no usable suggestions were produced; callers treat both as failure.
type Adapter interface {
	GenerateSuggestions(ctx context.Context, testContent, sourceContent string) (string, error)
}

// AdapterFunc adapts a plain function to the Adapter interface
type AdapterFunc func(ctx context.Context, testContent, sourceContent string) (string, error)

func (f AdapterFunc) GenerateSuggestions(ctx context.Context, testContent, sourceContent string) (string, error) {
	return f(ctx, testContent, sourceContent)
}
