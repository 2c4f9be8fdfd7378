// Package state persists the last-applied configuration for every managed
// integration. The reconciler reads the full record set at the start of a
// pass and writes back after every successful mutation; a record that is
// not durable must never be reported as saved.
package state

import (
	"context"
	"time"

	"github.com/opencontainers/go-digest"
)

// Record is the persisted per-configuration-id state.
type Record struct {
	Platform string `json:"platform"`
	// AnswersDigest fingerprints the ordered answers last applied.
	AnswersDigest digest.Digest `json:"answers_digest"`
	// OptionsDigest fingerprints the options last applied. Updated in
	// place on a successful options patch.
	OptionsDigest digest.Digest `json:"options_digest,omitempty"`
	// InstanceHandle is the opaque handle returned by the stepper. It is
	// owned by this package's callers and never interpreted.
	InstanceHandle string    `json:"instance_handle"`
	AppliedAt      time.Time `json:"applied_at"`
}

// Store is the durable keyed storage boundary. Implementations must make
// Save and Remove durable before returning, and assume a single writer.
type Store interface {
	// Load returns all stored records keyed by configuration id.
	Load(ctx context.Context) (map[string]Record, error)
	// Save durably writes the record for id, replacing any previous one.
	Save(ctx context.Context, id string, rec Record) error
	// Remove durably deletes the record for id. Removing an absent id is
	// not an error.
	Remove(ctx context.Context, id string) error
	Close() error
}
