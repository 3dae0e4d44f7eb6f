// Package service is the entry point external collaborators call: import,
// manual entry, categorization, suggestions and category/rule management, all
// within an already-resolved owner scope.
package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/LiorShrago/BudgetBuddy/internal/applier"
	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/config"
	"github.com/LiorShrago/BudgetBuddy/internal/dedupe"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/metrics"
	"github.com/LiorShrago/BudgetBuddy/internal/normalizer"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
	"github.com/LiorShrago/BudgetBuddy/internal/suggester"
)

var (
	ErrFileTooLarge          = errors.New("statement file exceeds the size limit")
	ErrScopeViolation        = errors.New("resource is outside the caller's scope")
	ErrInvalidCategory       = errors.New("category does not exist or is inactive")
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicateTransaction  = errors.New("an identical transaction is already on record")
	ErrResearchNotConfigured = errors.New("ai research is disabled")
)

// Options are the service-level settings.
type Options struct {
	MaxFileBytes           int64
	Strict                 bool
	DefaultPatternPriority int
	SeedFile               string
}

// OptionsFromConfig reads the import.* and rules.* settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxFileBytes:           cfg.Import.MaxFileBytes,
		Strict:                 cfg.Import.Strict,
		DefaultPatternPriority: cfg.Rules.DefaultPatternPriority,
		SeedFile:               cfg.Rules.SeedFile,
	}
}

// Service wires the categorization components together.
type Service struct {
	store      *store.Store
	normalizer *normalizer.Normalizer
	detector   *dedupe.Detector
	learner    *categorizer.Learner
	suggester  *suggester.Orchestrator
	applier    *applier.Applier
	opts       Options
	validate   *validator.Validate
	metrics    metrics.Recorder
	logger     logging.Logger
}

// Deps are the components a Service needs. Suggester may be nil when AI
// research is disabled.
type Deps struct {
	Store      *store.Store
	Normalizer *normalizer.Normalizer
	Detector   *dedupe.Detector
	Learner    *categorizer.Learner
	Suggester  *suggester.Orchestrator
	Applier    *applier.Applier
	Metrics    metrics.Recorder
	Logger     logging.Logger
}

// New creates a Service.
func New(deps Deps, opts Options) *Service {
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = 16 << 20
	}
	return &Service{
		store:      deps.Store,
		normalizer: deps.Normalizer,
		detector:   deps.Detector,
		learner:    deps.Learner,
		suggester:  deps.Suggester,
		applier:    deps.Applier,
		opts:       opts,
		validate:   validator.New(),
		metrics:    metrics.OrNop(deps.Metrics),
		logger:     logging.OrDefault(deps.Logger),
	}
}

// Formats lists the statement layouts Import understands.
func (s *Service) Formats() []string {
	return s.normalizer.Formats()
}
