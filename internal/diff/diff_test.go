package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinec/hubsync/internal/fingerprint"
	"github.com/avelinec/hubsync/internal/manifest"
	"github.com/avelinec/hubsync/internal/state"
)

func integration(id, platform string, answers []map[string]any) manifest.Integration {
	return manifest.Integration{
		ID:       id,
		Platform: platform,
		Answers:  answers,
		Options:  []map[string]any{},
	}
}

func recordFor(item manifest.Integration) state.Record {
	return state.Record{
		Platform:       item.Platform,
		AnswersDigest:  fingerprint.Steps(item.Answers),
		OptionsDigest:  fingerprint.Steps(item.Options),
		InstanceHandle: "h-" + item.ID,
		AppliedAt:      time.Now(),
	}
}

func actionsOf(p Plan) map[string]Action {
	out := make(map[string]Action, len(p.Operations))
	for _, op := range p.Operations {
		out[op.ID] = op.Action
	}
	return out
}

func TestCompute_DecisionTable(t *testing.T) {
	base := integration("office", "broadlink", []map[string]any{{"host": "192.168.3.146"}})
	baseRec := recordFor(base)

	tests := []struct {
		name    string
		desired func() manifest.Integration
		stored  func() (state.Record, bool)
		want    Action
	}{
		{
			name:    "desired only creates",
			desired: func() manifest.Integration { return base },
			stored:  func() (state.Record, bool) { return state.Record{}, false },
			want:    ActionCreate,
		},
		{
			name:    "platform change recreates",
			desired: func() manifest.Integration { d := base; d.Platform = "hue"; return d },
			stored:  func() (state.Record, bool) { return baseRec, true },
			want:    ActionRecreate,
		},
		{
			name: "answers change recreates",
			desired: func() manifest.Integration {
				d := base
				d.Answers = []map[string]any{{"host": "192.168.3.200"}}
				return d
			},
			stored: func() (state.Record, bool) { return baseRec, true },
			want:   ActionRecreate,
		},
		{
			name: "options change with recreate flag recreates",
			desired: func() manifest.Integration {
				d := base
				d.Options = []map[string]any{{"poll": 30}}
				d.RecreateOnOptionsChange = true
				return d
			},
			stored: func() (state.Record, bool) { return baseRec, true },
			want:   ActionRecreate,
		},
		{
			name: "options change without flag patches",
			desired: func() manifest.Integration {
				d := base
				d.Options = []map[string]any{{"poll": 30}}
				return d
			},
			stored: func() (state.Record, bool) { return baseRec, true },
			want:   ActionUpdateOptions,
		},
		{
			name:    "unchanged is a noop",
			desired: func() manifest.Integration { return base },
			stored:  func() (state.Record, bool) { return baseRec, true },
			want:    ActionNoop,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := map[string]state.Record{}
			if rec, ok := tt.stored(); ok {
				stored["office"] = rec
			}

			plan := Compute([]manifest.Integration{tt.desired()}, stored)
			require.Len(t, plan.Operations, 1)
			assert.Equal(t, tt.want, plan.Operations[0].Action)
		})
	}
}

func TestCompute_StoredOnlyDeletes(t *testing.T) {
	base := integration("office", "broadlink", []map[string]any{{"host": "x"}})
	stored := map[string]state.Record{"office": recordFor(base)}

	plan := Compute(nil, stored)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, ActionDelete, plan.Operations[0].Action)
	assert.Equal(t, "office", plan.Operations[0].ID)
	assert.Equal(t, "h-office", plan.Operations[0].Record.InstanceHandle)
}

func TestCompute_DeletesOrderedBeforeCreates(t *testing.T) {
	keep := integration("keep", "hue", []map[string]any{{"bridge": "10.0.0.5"}})
	added := integration("added", "broadlink", []map[string]any{{"host": "x"}})

	stored := map[string]state.Record{
		"keep":     recordFor(keep),
		"orphan_b": {Platform: "zwave", InstanceHandle: "h-b"},
		"orphan_a": {Platform: "zwave", InstanceHandle: "h-a"},
	}

	plan := Compute([]manifest.Integration{keep, added}, stored)
	require.Len(t, plan.Operations, 4)

	assert.Equal(t, ActionDelete, plan.Operations[0].Action)
	assert.Equal(t, "orphan_a", plan.Operations[0].ID, "orphans sorted for determinism")
	assert.Equal(t, ActionDelete, plan.Operations[1].Action)
	assert.Equal(t, "orphan_b", plan.Operations[1].ID)
	assert.Equal(t, ActionNoop, plan.Operations[2].Action)
	assert.Equal(t, ActionCreate, plan.Operations[3].Action)
}

func TestCompute_AnswerStepReorderRecreates(t *testing.T) {
	item := integration("office", "broadlink", []map[string]any{
		{"host": "192.168.3.146"},
		{"name": "Office Broadlink"},
	})
	stored := map[string]state.Record{"office": recordFor(item)}

	item.Answers = []map[string]any{
		{"name": "Office Broadlink"},
		{"host": "192.168.3.146"},
	}

	plan := Compute([]manifest.Integration{item}, stored)
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, ActionRecreate, plan.Operations[0].Action)
}

func TestCompute_IsPure(t *testing.T) {
	item := integration("office", "broadlink", []map[string]any{{"host": "x"}})
	desired := []manifest.Integration{item}
	stored := map[string]state.Record{}

	first := Compute(desired, stored)
	second := Compute(desired, stored)

	assert.Equal(t, actionsOf(first), actionsOf(second))
	assert.Empty(t, stored, "stored map must not be mutated")
}

func TestPlan_Changes(t *testing.T) {
	item := integration("office", "broadlink", []map[string]any{{"host": "x"}})
	stored := map[string]state.Record{"office": recordFor(item)}

	converged := Compute([]manifest.Integration{item}, stored)
	assert.Equal(t, 0, converged.Changes())

	drifted := Compute(nil, stored)
	assert.Equal(t, 1, drifted.Changes())
}

func TestOperation_Describe(t *testing.T) {
	item := integration("office", "broadlink", []map[string]any{{"host": "x"}})
	rec := recordFor(item)

	tests := []struct {
		op   Operation
		want string
	}{
		{Operation{ID: "office", Action: ActionCreate, Desired: &item}, "create office (platform broadlink)"},
		{Operation{ID: "office", Action: ActionDelete, Record: &rec}, "delete office (platform broadlink)"},
		{Operation{ID: "office", Action: ActionRecreate, Desired: &item, Record: &rec}, "recreate office (platform broadlink)"},
		{Operation{ID: "office", Action: ActionUpdateOptions, Desired: &item, Record: &rec}, "update options of office"},
		{Operation{ID: "office", Action: ActionNoop, Desired: &item, Record: &rec}, "no changes for office"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.Describe())
	}
}
