// Package rules holds the categorization rule commands.
package rules

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/LiorShrago/BudgetBuddy/cmd/common"
	"github.com/LiorShrago/BudgetBuddy/cmd/root"
	"github.com/LiorShrago/BudgetBuddy/internal/service"
)

var (
	pattern  bool
	priority int
)

// Cmd groups the rule commands
var Cmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage categorization rules",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in evaluation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := root.Service().ListRules(cmd.Context(), root.Scope())
		if err != nil {
			return err
		}
		if root.SharedFlags.JSON {
			return common.PrintJSON(cmd.OutOrStdout(), list)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPRIORITY\tKEYWORD\tPATTERN\tCATEGORY\tSOURCE\tACTIVE")
		for _, r := range list {
			fmt.Fprintf(w, "%d\t%d\t%s\t%t\t%d\t%s\t%t\n",
				r.ID, r.Priority, r.Keyword, r.IsPattern, r.CategoryID, r.Source, r.Active)
		}
		return w.Flush()
	},
}

var createCmd = &cobra.Command{
	Use:   "create KEYWORD CATEGORY",
	Short: "Create a rule routing KEYWORD to CATEGORY",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		categoryID, err := common.ParseID(args[1])
		if err != nil {
			return err
		}
		rule, err := root.Service().CreateRule(cmd.Context(), root.Scope(), service.NewRule{
			Keyword:    args[0],
			CategoryID: categoryID,
			IsPattern:  pattern,
			Priority:   priority,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s rule %d %q (priority %d)\n",
			color.GreenString("Saved"), rule.ID, rule.Keyword, rule.Priority)
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate RULE",
	Short: "Stop a rule from matching",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := common.ParseID(args[0])
		if err != nil {
			return err
		}
		return root.Service().DeactivateRule(cmd.Context(), root.Scope(), id)
	},
}

func init() {
	createCmd.Flags().BoolVar(&pattern, "pattern", false, "Treat KEYWORD as a regular expression")
	createCmd.Flags().IntVar(&priority, "priority", 1, "Evaluation order, lower first")
	Cmd.AddCommand(listCmd, createCmd, deactivateCmd)
}
