// Package stepper defines the boundary to the external system that
// actually creates, deletes and adjusts connector instances. The
// multi-step negotiation behind Begin is the adapter's concern; the
// reconciler only sees the four operations below.
package stepper

import (
	"context"
)

// Stepper drives the external setup/delete/options protocol for one host
// platform. Implementations provide their own timeout policy; a timed-out
// call must return an error rather than hang.
type Stepper interface {
	// Begin runs the connector's multi-step answer protocol to completion
	// using the full ordered answers sequence and returns the opaque
	// handle of the created instance. Missing or invalid fields surface
	// as a *ValidationError naming the step and field.
	Begin(ctx context.Context, platform string, answers []map[string]any) (string, error)

	// Delete removes the instance identified by handle. An instance that
	// is already gone yields a *NotFoundError; callers normalize that to
	// success since the goal state already holds.
	Delete(ctx context.Context, handle string) error

	// UpdateOptions applies a partial options patch to the instance.
	// Keys absent from the patch are left unchanged by the external
	// system, not reset to defaults.
	UpdateOptions(ctx context.Context, handle string, options []map[string]any) error

	// SupportsOptions reports whether the instance's platform exposes an
	// options protocol at all.
	SupportsOptions(ctx context.Context, handle string) (bool, error)
}
