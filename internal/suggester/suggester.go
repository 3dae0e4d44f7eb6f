// Package suggester produces category suggestions for uncategorized
// transactions: rules first, then the external research service under bounded
// concurrency, pacing, retries and a circuit breaker. It never writes.
package suggester

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/LiorShrago/BudgetBuddy/internal/categorizer"
	"github.com/LiorShrago/BudgetBuddy/internal/config"
	"github.com/LiorShrago/BudgetBuddy/internal/dateutils"
	"github.com/LiorShrago/BudgetBuddy/internal/logging"
	"github.com/LiorShrago/BudgetBuddy/internal/metrics"
	"github.com/LiorShrago/BudgetBuddy/internal/models"
	"github.com/LiorShrago/BudgetBuddy/internal/research"
	"github.com/LiorShrago/BudgetBuddy/internal/store"
)

// Kind classifies a per-transaction failure.
type Kind string

const (
	KindScopeViolation     Kind = "ScopeViolation"
	KindServiceUnavailable Kind = Kind(research.KindServiceUnavailable)
	KindRateLimited        Kind = Kind(research.KindRateLimited)
	KindMalformedResponse  Kind = Kind(research.KindMalformedResponse)
)

// Failure is a transaction no suggestion could be produced for.
type Failure struct {
	TransactionID uint   `json:"transaction_id"`
	Kind          Kind   `json:"kind"`
	Reason        string `json:"reason"`
}

// Batch is the result of one Suggest call.
type Batch struct {
	RunID       string              `json:"run_id"`
	Suggestions []models.Suggestion `json:"suggestions"`
	Failures    []Failure           `json:"failures,omitempty"`
	// Skipped lists transactions that already have a category.
	Skipped []uint `json:"skipped,omitempty"`
}

// Options tune the research fan-out.
type Options struct {
	MaxConcurrency      int
	RequestsPerMinute   int
	Timeout             time.Duration
	MaxAttempts         int
	Backoff             Backoff
	FuzzyThreshold      float64
	CircuitMaxFailures  int
	CircuitResetTimeout time.Duration
}

// OptionsFromConfig reads the ai.* settings.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxConcurrency:    cfg.AI.MaxConcurrency,
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
		Timeout:           cfg.Timeout(),
		MaxAttempts:       cfg.AI.MaxAttempts,
		Backoff: Backoff{
			Base:                cfg.BackoffBase(),
			Max:                 cfg.BackoffMax(),
			RateLimitMultiplier: cfg.AI.RateLimitMultiplier,
		},
		FuzzyThreshold:      cfg.AI.FuzzyThreshold,
		CircuitMaxFailures:  cfg.AI.CircuitMaxFailures,
		CircuitResetTimeout: cfg.CircuitReset(),
	}
}

// Orchestrator produces suggestions. It is safe for concurrent use.
type Orchestrator struct {
	store   *store.Store
	client  research.Client
	opts    Options
	limiter *rate.Limiter
	breaker *CircuitBreaker
	flight  singleflight.Group
	metrics metrics.Recorder
	logger  logging.Logger
	sleep   func(context.Context, time.Duration) error
}

// New creates an Orchestrator. A nil client disables research; unmatched
// transactions then fail with ServiceUnavailable.
func New(st *store.Store, client research.Client, opts Options, recorder metrics.Recorder, logger logging.Logger) *Orchestrator {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RequestsPerMinute < 1 {
		opts.RequestsPerMinute = 60
	}

	recorder = metrics.OrNop(recorder)
	o := &Orchestrator{
		store:   st,
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), opts.MaxConcurrency),
		metrics: recorder,
		logger:  logging.OrDefault(logger),
		sleep:   sleep,
	}

	cbConfig := DefaultCircuitBreakerConfig()
	if opts.CircuitMaxFailures > 0 {
		cbConfig.MaxFailures = opts.CircuitMaxFailures
	}
	if opts.CircuitResetTimeout > 0 {
		cbConfig.ResetTimeout = opts.CircuitResetTimeout
	}
	o.breaker = NewCircuitBreaker(cbConfig, func(state CircuitState) {
		recorder.CircuitState(o.providerName(), int(state))
		o.logger.Warn("Research circuit breaker changed state",
			logging.F(logging.FieldProvider, o.providerName()),
			logging.F(logging.FieldStatus, int(state)))
	})
	return o
}

func (o *Orchestrator) providerName() string {
	if o.client == nil {
		return "none"
	}
	return o.client.Name()
}

// Suggest returns suggestions for ids within scope.
//
// Ids outside the scope become ScopeViolation failures, categorized
// transactions are skipped. An AuthError from the research service aborts the
// batch and is returned with whatever finished; so is a cancelled ctx.
func (o *Orchestrator) Suggest(ctx context.Context, scope models.Scope, ids []uint) (Batch, error) {
	batch := Batch{RunID: uuid.NewString()}
	log := o.logger.WithFields(
		logging.F(logging.FieldOwnerID, scope.OwnerID),
		logging.F("run_id", batch.RunID))

	ids = unique(ids)
	if len(ids) == 0 {
		return batch, nil
	}

	txs, err := o.store.Transactions.ListByIDs(ctx, ids)
	if err != nil {
		return batch, fmt.Errorf("failed to load transactions: %w", err)
	}
	byID := make(map[uint]models.Transaction, len(txs))
	for _, tx := range txs {
		byID[tx.ID] = tx
	}

	categories, err := o.store.Categories.List(ctx, scope.OwnerID, false)
	if err != nil {
		return batch, fmt.Errorf("failed to load categories: %w", err)
	}
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	rules, err := o.store.Rules.ListActive(ctx, scope.OwnerID)
	if err != nil {
		return batch, fmt.Errorf("failed to load rules: %w", err)
	}
	ruleset := categorizer.NewRuleset(rules, o.logger)
	matcher := research.NewMatcher(categories, o.opts.FuzzyThreshold)

	results := make([]*models.Suggestion, len(ids))
	failures := make([]*Failure, len(ids))
	var pending []int

	for i, id := range ids {
		tx, ok := byID[id]
		switch {
		case !ok || !scope.Contains(tx.AccountID):
			failures[i] = &Failure{TransactionID: id, Kind: KindScopeViolation, Reason: "transaction not found in scope"}
		case tx.IsCategorized():
			batch.Skipped = append(batch.Skipped, id)
		default:
			if m, hit := ruleset.ResolveTransaction(tx); hit {
				categoryID := m.CategoryID
				results[i] = &models.Suggestion{
					TransactionID: id,
					CategoryID:    &categoryID,
					CategoryName:  names[categoryID],
					Provenance:    models.ProvenanceRule,
					Confidence:    models.ConfidenceHigh,
					Rationale:     fmt.Sprintf("matched rule %q", m.Keyword),
				}
				continue
			}
			pending = append(pending, i)
		}
	}

	var runErr error
	if len(pending) > 0 {
		if o.client == nil {
			for _, i := range pending {
				failures[i] = &Failure{TransactionID: ids[i], Kind: KindServiceUnavailable, Reason: "ai research is disabled"}
			}
		} else {
			runErr = o.researchAll(ctx, scope.OwnerID, ids, byID, pending, matcher, results, failures)
		}
	}

	ruleCount, aiCount := 0, 0
	for i := range ids {
		if s := results[i]; s != nil {
			batch.Suggestions = append(batch.Suggestions, *s)
			if s.Provenance == models.ProvenanceRule {
				ruleCount++
			} else {
				aiCount++
			}
		}
		if f := failures[i]; f != nil {
			batch.Failures = append(batch.Failures, *f)
		}
	}
	o.metrics.SuggestionsProduced(string(models.ProvenanceRule), ruleCount)
	o.metrics.SuggestionsProduced(string(models.ProvenanceAI), aiCount)

	log.Info("Suggestion run finished",
		logging.F(logging.FieldCount, len(batch.Suggestions)),
		logging.F("failures", len(batch.Failures)),
		logging.F("skipped", len(batch.Skipped)))

	if runErr != nil {
		return batch, runErr
	}
	return batch, nil
}

func (o *Orchestrator) researchAll(
	ctx context.Context,
	ownerID uint,
	ids []uint,
	byID map[uint]models.Transaction,
	pending []int,
	matcher *research.Matcher,
	results []*models.Suggestion,
	failures []*Failure,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.MaxConcurrency)
	categoryNames := matcher.Names()

	var mu sync.Mutex
	for _, i := range pending {
		if gctx.Err() != nil {
			break
		}
		tx := byID[ids[i]]
		g.Go(func() error {
			text, err := o.research(gctx, ownerID, tx, categoryNames)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var authErr *research.AuthError
				if errors.As(err, &authErr) {
					return err
				}
				if gctx.Err() != nil {
					return nil
				}
				failures[i] = &Failure{TransactionID: tx.ID, Kind: Kind(research.KindOf(err)), Reason: err.Error()}
				return nil
			}

			out := matcher.Interpret(text)
			switch out.Status {
			case research.StatusError:
				failures[i] = &Failure{TransactionID: tx.ID, Kind: Kind(out.Kind), Reason: "no category could be read from the answer"}
			case research.StatusMatched:
				categoryID := out.CategoryID
				results[i] = &models.Suggestion{
					TransactionID: tx.ID,
					CategoryID:    &categoryID,
					CategoryName:  out.CategoryName,
					Provenance:    models.ProvenanceAI,
					Confidence:    out.Confidence,
					Rationale:     out.Rationale,
				}
			default:
				results[i] = &models.Suggestion{
					TransactionID: tx.ID,
					CategoryName:  out.Label,
					Provenance:    models.ProvenanceAI,
					Confidence:    models.ConfidenceLow,
					Rationale:     out.Rationale,
				}
			}
			return nil
		})
	}

	err := g.Wait()
	var authErr *research.AuthError
	if errors.As(err, &authErr) {
		o.logger.WithError(err).Error("Research service rejected credentials; batch aborted")
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// research returns the raw answer for tx. Concurrent requests for the same
// transaction share one call; retries of one transaction run sequentially.
func (o *Orchestrator) research(ctx context.Context, ownerID uint, tx models.Transaction, categories []string) (string, error) {
	key := fmt.Sprintf("%d:%d", ownerID, tx.ID)
	v, err, _ := o.flight.Do(key, func() (interface{}, error) {
		return o.withRetry(ctx, research.Request{
			TransactionID: tx.ID,
			Date:          dateutils.ToISODate(tx.Date),
			Amount:        tx.SignedAmount().StringFixed(2),
			Description:   tx.Description,
			Merchant:      tx.Merchant,
			Categories:    categories,
		})
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (o *Orchestrator) withRetry(ctx context.Context, req research.Request) (string, error) {
	provider := o.client.Name()
	log := o.logger.WithFields(
		logging.F(logging.FieldTransactionID, req.TransactionID),
		logging.F(logging.FieldProvider, provider))

	var lastErr error
	for attempt := 0; attempt < o.opts.MaxAttempts; attempt++ {
		if o.breaker.IsOpen() {
			o.metrics.ResearchCall(provider, "circuit_open", 0)
			return "", &research.Error{Provider: provider, Kind: research.KindServiceUnavailable, Err: ErrCircuitOpen}
		}
		if err := o.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &research.Error{Provider: provider, Kind: research.KindRateLimited, Err: err}
		}

		start := time.Now()
		text, err := o.call(ctx, req)
		elapsed := time.Since(start)
		if err == nil {
			o.breaker.RecordSuccess()
			o.metrics.ResearchCall(provider, "ok", elapsed)
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		kind := research.KindOf(err)
		o.metrics.ResearchCall(provider, string(kind), elapsed)
		if !kind.Retryable() {
			if kind == research.KindMalformedResponse {
				o.breaker.RecordSuccess()
			}
			return "", err
		}

		o.breaker.RecordFailure()
		lastErr = err
		if attempt == o.opts.MaxAttempts-1 {
			break
		}

		delay := o.opts.Backoff.Delay(attempt, kind, research.RetryAfterOf(err))
		o.metrics.ResearchRetry(provider, string(kind))
		log.Debug("Retrying research call",
			logging.F(logging.FieldAttempt, attempt+1),
			logging.F(logging.FieldReason, string(kind)),
			logging.F(logging.FieldDuration, delay.Milliseconds()))
		if err := o.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	log.WithError(lastErr).Warn("Research retries exhausted")
	return "", lastErr
}

func (o *Orchestrator) call(ctx context.Context, req research.Request) (string, error) {
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}
	return o.client.Research(ctx, req)
}

func unique(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
