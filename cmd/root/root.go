// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LiorShrago/BudgetBuddy/internal/config"
	"github.com/LiorShrago/BudgetBuddy/internal/container"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/service"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	ConfigFile string
	LogLevel   string
	DSN        string
	OwnerID    uint
	AccountIDs []uint
	JSON       bool
	NoAI       bool
}

var (
	// AppConfig is the configuration loaded before any subcommand runs
	AppConfig *config.Config

	// AppContainer holds the wired dependencies for the running command
	AppContainer *container.Container

	// SharedFlags are the persistent flags
	SharedFlags = CommonFlags{}

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "budgetbuddy",
		Short: "Import bank statements and categorize transactions.",
		Long: `budgetbuddy imports bank and credit card statements, removes duplicates
and assigns spending categories using keyword rules, rules learned from your
corrections, and optional AI research.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initialize(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if AppContainer == nil {
				return nil
			}
			err := AppContainer.Close()
			AppContainer = nil
			return err
		},
	}
)

// Init registers the persistent flags.
func Init() {
	flags := Cmd.PersistentFlags()
	flags.StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: ./config.yaml, .budgetbuddy/ or ~/.budgetbuddy/)")
	flags.StringVar(&SharedFlags.LogLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	flags.StringVar(&SharedFlags.DSN, "db", "", "Database DSN override")
	flags.UintVar(&SharedFlags.OwnerID, "owner", 1, "Owner whose categories and rules are used")
	flags.UintSliceVar(&SharedFlags.AccountIDs, "accounts", []uint{1}, "Accounts the owner may act on")
	flags.BoolVar(&SharedFlags.JSON, "json", false, "Print results as JSON")
	flags.BoolVar(&SharedFlags.NoAI, "no-ai", false, "Disable AI research for this run")
}

func initialize(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.InitializeConfig(SharedFlags.ConfigFile)
	if err != nil {
		return err
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.DSN != "" {
		cfg.Database.DSN = SharedFlags.DSN
	}
	if SharedFlags.NoAI {
		cfg.AI.Enabled = false
	}

	c, err := container.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	AppConfig = cfg
	AppContainer = c
	return nil
}

// GetContainer returns the container built for the running command.
func GetContainer() *container.Container {
	return AppContainer
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return AppConfig
}

// Service returns the categorization service of the running command.
func Service() *service.Service {
	return AppContainer.GetService()
}

// Logger returns the running command's logger, or a default one before
// initialization.
func Logger() logging.Logger {
	if AppContainer == nil {
		return logging.OrDefault(nil)
	}
	return AppContainer.GetLogger()
}

// Scope is the owner and account set named by the persistent flags.
func Scope() models.Scope {
	return models.Scope{OwnerID: SharedFlags.OwnerID, AccountIDs: SharedFlags.AccountIDs}
}
