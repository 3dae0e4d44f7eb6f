// Package categories holds the category management commands.
package categories

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
	includeInactive bool
	colorHex        string
	parent          string
	reassign        uint
)

// Cmd groups the category commands
var Cmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage categories",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := root.Service().ListCategories(cmd.Context(), root.Scope(), includeInactive)
		if err != nil {
			return err
		}
		if root.SharedFlags.JSON {
			return common.PrintJSON(cmd.OutOrStdout(), list)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPARENT\tCOLOR\tACTIVE")
		for _, c := range list {
			p := "-"
			if c.ParentID != nil {
				p = fmt.Sprint(*c.ParentID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", c.ID, c.Name, p, c.Color, c.Active)
		}
		return w.Flush()
	},
}

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parentID, err := parseParent()
		if err != nil {
			return err
		}
		c, err := root.Service().CreateCategory(cmd.Context(), root.Scope(),
			service.NewCategory{Name: args[0], Color: colorHex, ParentID: parentID})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s category %d %s\n", color.GreenString("Created"), c.ID, c.Name)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move CATEGORY",
	Short: "Move a category under --parent, or to the top level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := common.ParseID(args[0])
		if err != nil {
			return err
		}
		parentID, err := parseParent()
		if err != nil {
			return err
		}
		return root.Service().MoveCategory(cmd.Context(), root.Scope(), id, parentID)
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate CATEGORY",
	Short: "Deactivate a category and its rules",
	Long: `Deactivate a category and the rules that target it. Transactions still
using it must be moved elsewhere with --reassign.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := common.ParseID(args[0])
		if err != nil {
			return err
		}
		var target *uint
		if reassign != 0 {
			target = &reassign
		}
		moved, err := root.Service().DeactivateCategory(cmd.Context(), root.Scope(), id, target)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s category %d (%d transactions reassigned)\n",
			color.GreenString("Deactivated"), id, moved)
		return nil
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the default categories and their rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		result, err := root.Service().BootstrapDefaults(cmd.Context(), root.Scope())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d categories, %d rules\n",
			color.GreenString("Created"), result.Categories, result.Rules)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&includeInactive, "all", false, "Include inactive categories")
	createCmd.Flags().StringVar(&colorHex, "color", "", "Display color as #rrggbb")
	createCmd.Flags().StringVar(&parent, "parent", "", "Parent category id")
	moveCmd.Flags().StringVar(&parent, "parent", "", "New parent category id (top level when empty)")
	deactivateCmd.Flags().UintVar(&reassign, "reassign", 0, "Category receiving the transactions")
	Cmd.AddCommand(listCmd, createCmd, moveCmd, deactivateCmd, bootstrapCmd)
}

func parseParent() (*uint, error) {
	if parent == "" {
		return nil, nil
	}
	id, err := common.ParseID(parent)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
