package freeroute

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/alert"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/budget"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/driver"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/extract"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/nlp"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/schema"
)

// Version is the application version, set at build time using ldflags.
var Version = "dev"

// LoadSchema loads the configured graph schema, or the embedded default
// when no path is set.
func LoadSchema(cfg config.GraphConfig) (*schema.Validator, error) {
	if cfg.SchemaPath == "" {
		return schema.Default(), nil
	}
	return schema.Load(cfg.SchemaPath)
}

// New builds a Client from configuration. The schema is loaded first and a
// bad schema fails construction.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	validator, err := LoadSchema(cfg.Graph)
	if err != nil {
		return nil, err
	}

	strategy, err := extract.NewStrategy(cfg.Graph.Strategy, cfg.Graph.BatchSize)
	if err != nil {
		return nil, err
	}

	llm, budgetCloser, err := buildProviderStack(ctx, cfg, validator, logger)
	if err != nil {
		return nil, err
	}
	var closers []func() error
	if budgetCloser != nil {
		closers = append(closers, budgetCloser)
	}

	caps := nlp.NewCapabilityRegistry()
	caps.Apply(cfg.Providers)

	defaults := extract.DefaultsFromConfig(cfg.Graph)
	attempter := extract.NewAttempter(llm, caps, validator, logger)
	orchestrator := extract.NewOrchestrator(attempter, strategy, defaults, logger)

	var store driver.GraphStore
	if cfg.Database.Driver == "neo4j" && cfg.Database.URI != "" {
		neo, err := driver.NewNeo4jStore(cfg.Database, logger)
		if err != nil {
			_ = llm.Close()
			for _, closeFn := range closers {
				_ = closeFn()
			}
			return nil, err
		}
		store = neo
	} else {
		logger.WarnContext(ctx, "graph store disabled; upsert and query are unavailable", "driver", cfg.Database.Driver)
	}

	client := NewClient(llm, orchestrator, store, Info{
		Version:    Version,
		LLMBaseURL: cfg.LLM.BaseURL,
		SchemaPath: cfg.Graph.SchemaPath,
		Defaults:   defaults,
		Strategy:   strategyName(cfg.Graph.Strategy),
	}, logger)
	client.closers = closers
	return client, nil
}

// buildProviderStack wraps the proxy client in the configured middleware,
// innermost first. The returned closer releases the budget counter store.
func buildProviderStack(ctx context.Context, cfg *config.Config, validator *schema.Validator, logger *slog.Logger) (nlp.Client, func() error, error) {
	base, err := nlp.NewOpenAIClient(nlp.OpenAIConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider client: %w", err)
	}

	var client nlp.Client = base
	if cfg.LLM.UsagePath != "" {
		tracker, err := nlp.NewTokenTracker(cfg.LLM.UsagePath, logger)
		if err != nil {
			_ = base.Close()
			return nil, nil, err
		}
		client = nlp.NewTokenTrackingClient(client, tracker, logger)
	}

	if cfg.CircuitBreaker.Enabled {
		client = nlp.NewCircuitBreakerClient(client, cfg.CircuitBreaker, alert.New(cfg.Alert, logger), logger)
	}

	var storeCloser func() error
	if cfg.Budget.Enabled {
		store, err := budget.Open(ctx, cfg.Budget)
		if err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to open budget store: %w", err)
		}
		storeCloser = store.Close
		meter := budget.NewMeter(store, budget.NewPolicy(cfg.Budget), logger)
		client = nlp.NewBudgetGate(client, meter, validator.Raw(), nlp.NewTiktokenCounter("", logger), logger)
	}

	client = nlp.NewRetryClient(client, nlp.RateLimitRetryConfig(cfg.LLM.RateLimitRetryDelay))
	return client, storeCloser, nil
}

func strategyName(name string) string {
	if name == "" {
		return extract.StrategyParallel
	}
	return name
}
