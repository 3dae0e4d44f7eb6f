package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/LiorShrago/BudgetBuddy/cmd/categories"
	"github.com/LiorShrago/BudgetBuddy/cmd/categorize"
	"github.com/LiorShrago/BudgetBuddy/cmd/root"
	"github.com/LiorShrago/BudgetBuddy/cmd/rules"
	"github.com/LiorShrago/BudgetBuddy/cmd/suggest"
	"github.com/LiorShrago/BudgetBuddy/cmd/transactions"
)

func init() {
	// 1. Load environment variables silently first (no logging yet)
	loadEnvSilently()

	// 2. Initialize root command flags
	root.Init()

	// 3. Add all subcommands
	root.Cmd.AddCommand(transactions.ImportCmd)
	root.Cmd.AddCommand(transactions.AddCmd)
	root.Cmd.AddCommand(transactions.ExportCmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(suggest.Cmd)
	root.Cmd.AddCommand(suggest.ApplyCmd)
	root.Cmd.AddCommand(categories.Cmd)
	root.Cmd.AddCommand(rules.Cmd)
}

// loadEnvSilently loads a .env file from the working directory or its parent
// without logging anything
func loadEnvSilently() {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}
	_ = godotenv.Load(envFile)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
