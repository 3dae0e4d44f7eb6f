// Package container provides dependency injection for the BudgetBuddy CLI.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/LiorShrago/BudgetBuddy/internal/applier"
	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/config"
	"github.com/LiorShrago/BudgetBuddy/internal/database"
	"github.com/LiorShrago/BudgetBuddy/internal/dedupe"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/metrics"
	"github.com/LiorShrago/BudgetBuddy/internal/normalizer"
	"github.com/LiorShrago/BudgetBuddy/internal/research"
	"github.com/LiorShrago/BudgetBuddy/internal/service"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
	"github.com/LiorShrago/BudgetBuddy/internal/suggester"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation; fields are private and only reachable
// through getters.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	db       *database.DB
	store    *store.Store
	metrics  *metrics.Prometheus
	aiClient research.Client
	service  *service.Service
}

// NewContainer creates and wires all application dependencies.
// This is the main entry point for dependency injection in the application.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Create logger first as it's needed by other components
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	policy, err := dedupe.ParsePolicy(cfg.Import.OccurrencePolicy)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	st := store.New(db.DB)
	recorder := metrics.NewPrometheus()

	// Create AI client (if enabled)
	var aiClient research.Client
	var orchestrator *suggester.Orchestrator
	if cfg.AI.Enabled {
		aiClient, err = research.New(ctx, cfg, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create research client: %w", err)
		}
		orchestrator = suggester.New(st, aiClient, suggester.OptionsFromConfig(cfg), recorder, logger)
		logger.Info("AI research enabled", logging.F(logging.FieldProvider, aiClient.Name()))
	} else {
		logger.Info("AI research disabled")
	}

	learner := categorizer.NewLearner(st.Rules, cfg.Rules.LearnedPriority, logger)
	svc := service.New(service.Deps{
		Store:      st,
		Normalizer: normalizer.New(cfg.Import.TransferKeywords, logger),
		Detector:   dedupe.NewDetector(policy),
		Learner:    learner,
		Suggester:  orchestrator,
		Applier:    applier.New(st, learner, recorder, logger),
		Metrics:    recorder,
		Logger:     logger,
	}, service.OptionsFromConfig(cfg))

	logger.Debug("Container initialized",
		logging.F("driver", cfg.Database.Driver),
		logging.F("ai_enabled", cfg.AI.Enabled))

	return &Container{
		logger:   logger,
		config:   cfg,
		db:       db,
		store:    st,
		metrics:  recorder,
		aiClient: aiClient,
		service:  svc,
	}, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetService returns the categorization service.
func (c *Container) GetService() *service.Service {
	return c.service
}

// GetStore returns the repositories.
func (c *Container) GetStore() *store.Store {
	return c.store
}

// GetMetrics returns the Prometheus recorder.
func (c *Container) GetMetrics() *metrics.Prometheus {
	return c.metrics
}

// GetAIClient returns the research client, or nil when AI research is disabled.
func (c *Container) GetAIClient() research.Client {
	return c.aiClient
}

// Close writes the metrics textfile when configured and releases the research
// client and the database.
func (c *Container) Close() error {
	var errs []error
	if path := c.config.Metrics.Textfile; path != "" {
		if err := c.metrics.WriteTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if closer, ok := c.aiClient.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	c.logger.Debug("Container closed")
	return errors.Join(errs...)
}
