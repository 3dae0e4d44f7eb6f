// Package common contains shared functionality for command handlers
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/LiorShrago/BudgetBuddy/internal/applier"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/suggester"
)

var (
	okTag   = color.New(color.BgGreen, color.FgBlack).SprintFunc()
	failTag = color.New(color.BgRed, color.FgWhite).SprintFunc()
	infoTag = color.New(color.BgBlue, color.FgWhite).SprintFunc()
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ParseID parses a positive decimal id.
func ParseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// ParseIDs parses every argument as an id.
func ParseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := ParseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseCategory parses a category id; "none" clears the category.
func ParseCategory(s string) (*uint, error) {
	if strings.EqualFold(s, "none") {
		return nil, nil
	}
	id, err := ParseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// PrintApplyResult prints how many items were applied and why the rest failed.
func PrintApplyResult(w io.Writer, result applier.Result) {
	fmt.Fprintf(w, "%s %d applied\n", okTag(" OK "), result.Applied)
	for _, f := range result.Failed {
		fmt.Fprintf(w, "%s transaction %d: %s (%s)\n", failTag(" FAIL "), f.TransactionID, f.Reason, f.Kind)
	}
	if result.Cancelled {
		fmt.Fprintf(w, "%s cancelled before all items were processed\n", failTag(" STOP "))
	}
}

// PrintBatch prints suggestions, failures and skipped ids of a suggestion run.
func PrintBatch(w io.Writer, batch suggester.Batch) {
	for _, s := range batch.Suggestions {
		tag := okTag
		if s.CategoryID == nil || s.Confidence == models.ConfidenceLow {
			tag = infoTag
		}
		id := "-"
		if s.CategoryID != nil {
			id = strconv.FormatUint(uint64(*s.CategoryID), 10)
		}
		fmt.Fprintf(w, "%s %6d -> %-24s [%s] %-6s %s\n",
			tag(fmt.Sprintf(" %-4s ", s.Provenance)), s.TransactionID, s.CategoryName, id, s.Confidence, s.Rationale)
	}
	for _, f := range batch.Failures {
		fmt.Fprintf(w, "%s %6d %s: %s\n", failTag(" FAIL "), f.TransactionID, f.Kind, f.Reason)
	}
	if len(batch.Skipped) > 0 {
		fmt.Fprintf(w, "skipped %d already categorized\n", len(batch.Skipped))
	}
}
