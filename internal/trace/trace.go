// Package trace provides a Tracer that runs an operation inside an X-Ray
// segment when enabled, generalizing the teacher's
// pkg/observability/tracing.go EnableTracing feature flag from
// HTTP-handler segments to CLI-operation segments. The CLI builds a
// Tracer on its App, but no item-store or blob call is wrapped in
// Capture.
package trace

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer starts a named segment around an operation. Disabled mode runs
// fn unmodified, so callers never branch on the config flag themselves.
type Tracer interface {
	Capture(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

type noopTracer struct{}

func (noopTracer) Capture(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewNoop returns a Tracer that never opens an X-Ray segment.
func NewNoop() Tracer { return noopTracer{} }

type xrayTracer struct{}

// New returns a Tracer backed by the X-Ray SDK's global recorder,
// active once AWSPRIM_ENABLE_TRACING=1 sets internal/config's
// EnableTracing flag.
func New() Tracer { return xrayTracer{} }

func (xrayTracer) Capture(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	var captured error
	err := xray.Capture(ctx, name, func(segCtx context.Context) error {
		captured = fn(segCtx)
		return captured
	})
	if captured != nil {
		return captured
	}
	return err
}
