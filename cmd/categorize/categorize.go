// Package categorize handles transaction categorization commands
package categorize

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/LiorShrago/BudgetBuddy/cmd/common"
	"github.com/LiorShrago/BudgetBuddy/cmd/root"
)

var bulkCategory string

// Cmd groups the categorization commands
var Cmd = &cobra.Command{
	Use:   "categorize",
	Short: "Categorize transactions",
	Long: `Assign categories to transactions by hand, in bulk, or automatically from
rules and high-confidence AI research.`,
}

var setCmd = &cobra.Command{
	Use:   "set TRANSACTION CATEGORY",
	Short: "Set one transaction's category and learn a rule from it",
	Long: `Set (or, with "none", clear) one transaction's category. The correction
is remembered as a rule for similar transactions.`,
	Args: cobra.ExactArgs(2),
	RunE: setFunc,
}

var bulkCmd = &cobra.Command{
	Use:   "bulk TRANSACTION...",
	Short: "Assign one category to many transactions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  bulkFunc,
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Categorize every uncategorized transaction",
	Long: `Apply rule matches to every uncategorized transaction, then apply AI
suggestions that exactly name one of your categories. Suggestions applied this
way do not create rules.`,
	Args: cobra.NoArgs,
	RunE: autoFunc,
}

func init() {
	bulkCmd.Flags().StringVar(&bulkCategory, "category", "", `Category id, or "none" to clear`)
	_ = bulkCmd.MarkFlagRequired("category")
	Cmd.AddCommand(setCmd, bulkCmd, autoCmd)
}

func setFunc(cmd *cobra.Command, args []string) error {
	id, err := common.ParseID(args[0])
	if err != nil {
		return err
	}
	category, err := common.ParseCategory(args[1])
	if err != nil {
		return err
	}
	if err := root.Service().UpdateCategory(cmd.Context(), root.Scope(), id, category); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s transaction %d\n", color.GreenString("Updated"), id)
	return nil
}

func bulkFunc(cmd *cobra.Command, args []string) error {
	ids, err := common.ParseIDs(args)
	if err != nil {
		return err
	}
	category, err := common.ParseCategory(bulkCategory)
	if err != nil {
		return err
	}

	result := root.Service().BulkCategorize(cmd.Context(), root.Scope(), ids, category)
	if root.SharedFlags.JSON {
		return common.PrintJSON(cmd.OutOrStdout(), result)
	}
	common.PrintApplyResult(cmd.OutOrStdout(), result)
	if result.Cancelled {
		return cmd.Context().Err()
	}
	return nil
}

func autoFunc(cmd *cobra.Command, _ []string) error {
	result, err := root.Service().AutoCategorizeAll(cmd.Context(), root.Scope())
	out := cmd.OutOrStdout()
	if root.SharedFlags.JSON {
		return errors.Join(common.PrintJSON(out, result), err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d uncategorized: %s by rules, %s by AI, %d remaining\n",
		result.Total, color.GreenString("%d", result.RuleApplied),
		color.GreenString("%d", result.AIApplied), result.Remaining)
	if result.AIError != "" {
		fmt.Fprintf(out, "%s %s\n", color.YellowString("AI research skipped:"), result.AIError)
	}
	for _, f := range result.AIFailures {
		fmt.Fprintf(out, "  transaction %d: %s (%s)\n", f.TransactionID, f.Reason, f.Kind)
	}
	for _, f := range result.Failed {
		fmt.Fprintf(out, "  %s transaction %d: %s\n", color.RedString("failed"), f.TransactionID, f.Reason)
	}
	return nil
}
