package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/avelinec/hubsync/internal/diff"
	"github.com/avelinec/hubsync/internal/reconciler"
	"github.com/avelinec/hubsync/internal/state"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderPlan(plan diff.Plan) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Plan") + "\n")

	if plan.Changes() == 0 {
		b.WriteString(dimStyle.Render("  everything up to date, nothing to do") + "\n")
		return b.String()
	}

	for _, op := range plan.Operations {
		line := "  " + op.Describe()
		switch op.Action {
		case diff.ActionNoop:
			line = dimStyle.Render(line)
		case diff.ActionDelete:
			line = errorStyle.Render(line)
		case diff.ActionRecreate, diff.ActionUpdateOptions:
			line = skipStyle.Render(line)
		default:
			line = successStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(fmt.Sprintf("\n%d change(s) planned\n", plan.Changes()))
	return b.String()
}

func renderReport(report *reconciler.Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Reconciliation report") + "\n")

	for _, entry := range report.Entries {
		var marker string
		switch entry.Outcome {
		case reconciler.OutcomeSuccess:
			marker = successStyle.Render("ok  ")
		case reconciler.OutcomeSkipped:
			marker = skipStyle.Render("skip")
		default:
			marker = errorStyle.Render("err ")
		}
		b.WriteString(fmt.Sprintf("  %s %-24s %-14s %s\n", marker, entry.ID, entry.Action, entry.Detail))
	}

	success, skipped, failed := report.Counts()
	b.WriteString(fmt.Sprintf("\n%d succeeded, %d skipped, %d failed in %s\n",
		success, skipped, failed, report.Duration.Round(time.Millisecond)))
	return b.String()
}

func renderState(records map[string]state.Record) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Stored integrations") + "\n")

	if len(records) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
		return b.String()
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := records[id]
		b.WriteString(fmt.Sprintf("  %-24s platform=%-16s handle=%s applied=%s\n",
			id, rec.Platform, rec.InstanceHandle, rec.AppliedAt.Format("2006-01-02 15:04:05")))
	}
	return b.String()
}
