// Package diff computes the reconciliation plan: the ordered set of
// operations that converges the host platform from the stored state to
// the desired manifest. Compute is pure and total; it never mutates its
// inputs and never fails.
package diff

import (
	"fmt"
	"sort"

	"github.com/avelinec/hubsync/internal/fingerprint"
	"github.com/avelinec/hubsync/internal/manifest"
	"github.com/avelinec/hubsync/internal/state"
)

// Action classifies one operation in a plan.
type Action string

const (
	// ActionCreate sets up an integration with no stored record.
	ActionCreate Action = "create"
	// ActionDelete removes an integration no longer declared.
	ActionDelete Action = "delete"
	// ActionRecreate deletes then recreates an integration whose
	// platform or answers changed. Reported as a single unit.
	ActionRecreate Action = "recreate"
	// ActionUpdateOptions patches options without recreation.
	ActionUpdateOptions Action = "update-options"
	// ActionNoop records that the integration is already converged.
	ActionNoop Action = "noop"
)

// Operation is one planned step for a single configuration id.
type Operation struct {
	ID     string
	Action Action
	// Desired is set for create, recreate and update-options.
	Desired *manifest.Integration
	// Record is the stored state, set for everything but create.
	Record *state.Record
}

// Describe renders a short human-readable summary of the operation.
func (o Operation) Describe() string {
	switch o.Action {
	case ActionCreate:
		return fmt.Sprintf("create %s (platform %s)", o.ID, o.Desired.Platform)
	case ActionDelete:
		return fmt.Sprintf("delete %s (platform %s)", o.ID, o.Record.Platform)
	case ActionRecreate:
		return fmt.Sprintf("recreate %s (platform %s)", o.ID, o.Desired.Platform)
	case ActionUpdateOptions:
		return fmt.Sprintf("update options of %s", o.ID)
	default:
		return fmt.Sprintf("no changes for %s", o.ID)
	}
}

// Plan is the ordered operation sequence for one pass. Deletions come
// first so a replaced configuration id never transiently exists twice in
// the external system.
type Plan struct {
	Operations []Operation
}

// Changes reports whether the plan contains anything besides no-ops.
func (p Plan) Changes() int {
	n := 0
	for _, op := range p.Operations {
		if op.Action != ActionNoop {
			n++
		}
	}
	return n
}

// Compute builds the plan for the given desired items and stored records.
// The decision per configuration id:
//
//   - desired only                      -> create
//   - stored only                       -> delete
//   - platform or answers changed       -> recreate
//   - options changed, recreate flagged -> recreate
//   - options changed                   -> update-options
//   - otherwise                         -> noop
//
// A platform change is indistinguishable from an answers change: the
// stored instance cannot be reinterpreted under a different connector
// type.
func Compute(desired []manifest.Integration, stored map[string]state.Record) Plan {
	desiredIDs := make(map[string]struct{}, len(desired))
	for _, item := range desired {
		desiredIDs[item.ID] = struct{}{}
	}

	// Orphaned records first, in lexicographic order for determinism.
	orphans := make([]string, 0)
	for id := range stored {
		if _, ok := desiredIDs[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)

	ops := make([]Operation, 0, len(orphans)+len(desired))
	for _, id := range orphans {
		rec := stored[id]
		ops = append(ops, Operation{ID: id, Action: ActionDelete, Record: &rec})
	}

	for i := range desired {
		item := &desired[i]
		rec, exists := stored[item.ID]
		if !exists {
			ops = append(ops, Operation{ID: item.ID, Action: ActionCreate, Desired: item})
			continue
		}

		recCopy := rec
		answersChanged := rec.Platform != item.Platform ||
			rec.AnswersDigest != fingerprint.Steps(item.Answers)
		optionsChanged := rec.OptionsDigest != fingerprint.Steps(item.Options)

		switch {
		case answersChanged:
			ops = append(ops, Operation{ID: item.ID, Action: ActionRecreate, Desired: item, Record: &recCopy})
		case optionsChanged && item.RecreateOnOptionsChange:
			ops = append(ops, Operation{ID: item.ID, Action: ActionRecreate, Desired: item, Record: &recCopy})
		case optionsChanged:
			ops = append(ops, Operation{ID: item.ID, Action: ActionUpdateOptions, Desired: item, Record: &recCopy})
		default:
			ops = append(ops, Operation{ID: item.ID, Action: ActionNoop, Desired: item, Record: &recCopy})
		}
	}

	return Plan{Operations: ops}
}
