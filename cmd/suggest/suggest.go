// Package suggest holds the AI suggestion commands.
package suggest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LiorShrago/BudgetBuddy/cmd/common"
	"github.com/LiorShrago/BudgetBuddy/cmd/root"
	"github.com/LiorShrago/BudgetBuddy/internal/applier"
	"github.com/LiorShrago/BudgetBuddy/internal/suggester"
)

var all bool

// Cmd proposes categories without writing anything
var Cmd = &cobra.Command{
	Use:   "suggest [TRANSACTION...]",
	Short: "Suggest categories for transactions",
	Long: `Suggest categories using rules first and AI research for the rest.
Nothing is written; use "apply" to accept suggestions.`,
	RunE: suggestFunc,
}

// ApplyCmd writes accepted suggestions
var ApplyCmd = &cobra.Command{
	Use:   "apply TRANSACTION=CATEGORY...",
	Short: "Apply accepted suggestions and learn rules from them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  applyFunc,
}

func init() {
	Cmd.Flags().BoolVar(&all, "all", false, "Suggest for every uncategorized transaction")
}

func suggestFunc(cmd *cobra.Command, args []string) error {
	if !all && len(args) == 0 {
		return errors.New("name transactions or pass --all")
	}

	var batch suggester.Batch
	var err error
	if all {
		batch, err = root.Service().AISuggestAll(cmd.Context(), root.Scope())
	} else {
		ids, perr := common.ParseIDs(args)
		if perr != nil {
			return perr
		}
		batch, err = root.Service().AISuggest(cmd.Context(), root.Scope(), ids)
	}

	out := cmd.OutOrStdout()
	if root.SharedFlags.JSON {
		return errors.Join(common.PrintJSON(out, batch), err)
	}
	common.PrintBatch(out, batch)
	return err
}

func applyFunc(cmd *cobra.Command, args []string) error {
	items, err := ParseItems(args)
	if err != nil {
		return err
	}

	result := root.Service().ApplySuggestions(cmd.Context(), root.Scope(), items)
	if root.SharedFlags.JSON {
		return common.PrintJSON(cmd.OutOrStdout(), result)
	}
	common.PrintApplyResult(cmd.OutOrStdout(), result)
	if result.Cancelled {
		return cmd.Context().Err()
	}
	return nil
}

// ParseItems reads TRANSACTION=CATEGORY pairs.
func ParseItems(args []string) ([]applier.Item, error) {
	items := make([]applier.Item, 0, len(args))
	for _, arg := range args {
		tx, category, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected TRANSACTION=CATEGORY, got %q", arg)
		}
		id, err := common.ParseID(tx)
		if err != nil {
			return nil, err
		}
		categoryID, err := common.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		items = append(items, applier.Item{TransactionID: id, CategoryID: categoryID})
	}
	return items, nil
}
