// Package transactions holds the import, add and export commands.
package transactions

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/LiorShrago/BudgetBuddy/cmd/common"
	"github.com/LiorShrago/BudgetBuddy/cmd/root"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/service"
)

var (
	accountID   uint
	formatHint  string
	strict      bool
	date        string
	amount      string
	description string
	merchant    string
	txType      string
	categoryID  uint
	output      string
	delimiter   string
)

// ImportCmd imports a statement file
var ImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a bank or credit card statement",
	Long: `Import a CSV statement into an account. The layout is detected from the
file unless --format is given. Rows already on record are skipped, so importing
the same file twice imports nothing the second time.`,
	Args: cobra.ExactArgs(1),
	RunE: importFunc,
}

// AddCmd adds a transaction by hand
var AddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a transaction by hand",
	Long:  `Add a single transaction. Without --category the owner's rules are applied.`,
	RunE:  addFunc,
}

// ExportCmd writes transactions as CSV
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export transactions as CSV",
	RunE:  exportFunc,
}

func init() {
	ImportCmd.Flags().UintVarP(&accountID, "account", "a", 1, "Account the statement belongs to")
	ImportCmd.Flags().StringVarP(&formatHint, "format", "f", "", "Statement layout, skipping detection")
	ImportCmd.Flags().BoolVar(&strict, "strict", false, "Abort on the first malformed row")

	AddCmd.Flags().UintVarP(&accountID, "account", "a", 1, "Account")
	AddCmd.Flags().StringVarP(&date, "date", "t", "", "Transaction date")
	AddCmd.Flags().StringVarP(&amount, "amount", "m", "", "Amount, negative for money spent")
	AddCmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	AddCmd.Flags().StringVar(&merchant, "merchant", "", "Merchant (extracted from the description when empty)")
	AddCmd.Flags().StringVar(&txType, "type", "", "expense, income or transfer (implied by the sign when empty)")
	AddCmd.Flags().UintVar(&categoryID, "category", 0, "Category id")
	_ = AddCmd.MarkFlagRequired("date")
	_ = AddCmd.MarkFlagRequired("amount")
	_ = AddCmd.MarkFlagRequired("description")

	ExportCmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	ExportCmd.Flags().StringVar(&delimiter, "delimiter", ",", "Field delimiter")
}

func importFunc(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	result, err := root.Service().Import(cmd.Context(), root.Scope(), accountID, file,
		service.ImportOptions{FormatHint: formatHint, Strict: strict})
	out := cmd.OutOrStdout()
	if root.SharedFlags.JSON {
		if jerr := common.PrintJSON(out, result); jerr != nil {
			return jerr
		}
		return err
	}
	if err != nil {
		for _, e := range result.Errors {
			fmt.Fprintf(out, "row %d: %s\n", e.Row, e.Reason)
		}
		return err
	}

	fmt.Fprintf(out, "%s %s: %d imported, %d duplicates, %d rows rejected, %d categorized\n",
		color.GreenString("Imported"), result.Format, result.ImportedCount,
		result.DuplicateCount, result.ParseErrorCount, result.CategorizedCount)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  %s row %d: %s\n", color.YellowString("skipped"), e.Row, e.Reason)
	}
	return nil
}

func addFunc(cmd *cobra.Command, _ []string) error {
	entry := service.ManualEntry{
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Description: description,
		Merchant:    merchant,
		Type:        models.TransactionType(txType),
	}
	if categoryID != 0 {
		entry.CategoryID = &categoryID
	}

	tx, err := root.Service().AddTransaction(cmd.Context(), root.Scope(), entry)
	if err != nil {
		return err
	}
	if root.SharedFlags.JSON {
		return common.PrintJSON(cmd.OutOrStdout(), tx)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s transaction %d\n", color.GreenString("Added"), tx.ID)
	return nil
}

func exportFunc(cmd *cobra.Command, _ []string) error {
	runes := []rune(delimiter)
	if len(runes) != 1 {
		return fmt.Errorf("delimiter must be a single character")
	}

	w := cmd.OutOrStdout()
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	n, err := root.Service().Export(cmd.Context(), root.Scope(), w, runes[0])
	if err != nil {
		return err
	}
	if output != "" {
		root.Logger().Info("Exported transactions", logging.F("file", output), logging.F("count", n))
	}
	return nil
}
