package transcode

import (
	"context"
	"fmt"
)

// Dimensions is a target frame size in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Engine produces one rendition of sourcePath at dims into outputPath.
// Run blocks until the engine has terminated and reports exactly one
// outcome. On success outputPath holds the complete file; on failure
// outputPath is untouched.
type Engine interface {
	Run(ctx context.Context, sourcePath string, dims Dimensions, outputPath string) error
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, sourcePath string, dims Dimensions, outputPath string) error

// Run implements Engine.
func (f EngineFunc) Run(ctx context.Context, sourcePath string, dims Dimensions, outputPath string) error {
	return f(ctx, sourcePath, dims, outputPath)
}

// EngineError is the failure of a single engine invocation. Cause is safe to
// show to a human; Err, when set, is the underlying error.
type EngineError struct {
	Cause string
	Err   error
}

func (e *EngineError) Error() string {
	return "engine: " + e.Cause
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
